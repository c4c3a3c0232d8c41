package resolver

import "github.com/Sternrassler/manga-proxy/pkg/normalize"

// Upstream paths of the catalog listing, shared by list, search and home.
const (
	MangaListPath = "v1/manga/list"
	GenresPath    = "api/genres"
)

var chains = map[normalize.Operation]Chain{
	normalize.OpMangaList: {
		Operation: normalize.OpMangaList,
		Steps: []Step{
			{Path: MangaListPath, Accept: AnyPayload, WithQuery: true},
		},
	},
	normalize.OpSearch: {
		Operation: normalize.OpSearch,
		Steps: []Step{
			{Path: MangaListPath, Accept: AnyPayload, WithQuery: true},
		},
	},
	normalize.OpMangaDetail: {
		Operation: normalize.OpMangaDetail,
		Steps: []Step{
			{Path: "v1/manga/detail/{id}", Accept: RequireData},
			{Path: "api/manhwa-detail/{id}", Accept: RequireData},
		},
	},
	normalize.OpChapterList: {
		Operation: normalize.OpChapterList,
		Steps: []Step{
			{Path: "v1/chapter/{id}/list", Accept: RequireData, WithQuery: true},
			{Path: "api/chapter-list/{id}", Accept: RequireData, WithQuery: true},
		},
	},
	normalize.OpChapterDetail: {
		Operation: normalize.OpChapterDetail,
		Steps: []Step{
			{Path: "v1/chapter/detail/{id}", Accept: RequireData},
			{Path: "api/chapter/{id}", Accept: RequireData},
		},
		Transform: WithImageURLs,
	},
	normalize.OpGenres: {
		Operation: normalize.OpGenres,
		Steps: []Step{
			{Path: GenresPath, Accept: AnyPayload},
		},
	},
}

// ChainFor returns the declared chain of op. Home has no chain of its own;
// its sub-calls use the manga_list chain.
func ChainFor(op normalize.Operation) (Chain, bool) {
	c, ok := chains[op]
	return c, ok
}
