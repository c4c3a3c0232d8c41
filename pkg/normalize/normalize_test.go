package normalize

import (
	"errors"
	"math/rand"
	"net/url"
	"strings"
	"testing"
)

func TestNormalize_MangaListDefaults(t *testing.T) {
	p := Normalize(OpMangaList, url.Values{}, nil)

	want := map[string]string{
		"type":       "project",
		"page":       "1",
		"page_size":  "30",
		"is_update":  "true",
		"sort":       "latest",
		"sort_order": "desc",
		"q":          "",
	}

	if len(p.Query) != len(want) {
		t.Fatalf("Query = %v, want %v", p.Query, want)
	}
	for k, v := range want {
		if p.Query[k] != v {
			t.Errorf("Query[%s] = %q, want %q", k, p.Query[k], v)
		}
	}
}

func TestNormalize_Coercion(t *testing.T) {
	tests := []struct {
		name  string
		raw   url.Values
		field string
		want  string
	}{
		{"valid int", url.Values{"page": {"3"}}, "page", "3"},
		{"int with spaces", url.Values{"page": {" 4 "}}, "page", "4"},
		{"leading zeros canonicalized", url.Values{"page": {"007"}}, "page", "7"},
		{"non-numeric falls back", url.Values{"page": {"abc"}}, "page", "1"},
		{"zero below minimum", url.Values{"page": {"0"}}, "page", "1"},
		{"negative below minimum", url.Values{"page_size": {"-5"}}, "page_size", "30"},
		{"float falls back", url.Values{"page_size": {"2.5"}}, "page_size", "30"},
		{"empty string takes default", url.Values{"sort": {""}}, "sort", "latest"},
		{"string passes through", url.Values{"type": {"mirror"}}, "type", "mirror"},
		{"first value wins", url.Values{"type": {"mirror", "project"}}, "type", "mirror"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(OpMangaList, tt.raw, nil)
			if got := p.Query[tt.field]; got != tt.want {
				t.Errorf("Query[%s] = %q, want %q", tt.field, got, tt.want)
			}
		})
	}
}

func TestNormalize_DropsUnknownParams(t *testing.T) {
	p := Normalize(OpMangaList, url.Values{"evil": {"1"}, "callback": {"x"}}, nil)

	if _, ok := p.Query["evil"]; ok {
		t.Error("unrecognized parameter should be dropped")
	}
	if strings.Contains(p.Canonical(), "callback") {
		t.Errorf("Canonical() = %s, contains dropped parameter", p.Canonical())
	}
}

func TestNormalize_SearchFixedPageSize(t *testing.T) {
	p := Normalize(OpSearch, url.Values{"q": {"solo"}, "page_size": {"100"}}, nil)

	if p.Query["page_size"] != "5" {
		t.Errorf("page_size = %q, want fixed 5", p.Query["page_size"])
	}
	if p.Query["q"] != "solo" {
		t.Errorf("q = %q, want solo", p.Query["q"])
	}
}

func TestNormalize_PathParams(t *testing.T) {
	p := Normalize(OpChapterList, url.Values{"page": {"2"}}, map[string]string{"id": " 42 "})

	if p.Path["id"] != "42" {
		t.Errorf("Path[id] = %q, want 42", p.Path["id"])
	}
	if _, ok := p.Values()["id"]; ok {
		t.Error("path parameters must not be forwarded as query")
	}
	want := "manga:chapter_list:id=42:page=2:page_size=24:sort_by=chapter_number:sort_order=desc"
	if got := p.Canonical(); got != want {
		t.Errorf("Canonical() = %s, want %s", got, want)
	}
}

func TestNormalize_DefaultsEqualExplicit(t *testing.T) {
	implicit := Normalize(OpMangaList, url.Values{}, nil)
	explicit := Normalize(OpMangaList, url.Values{"page": {"1"}, "type": {"project"}, "sort_order": {"desc"}}, nil)

	if implicit.Canonical() != explicit.Canonical() {
		t.Errorf("keys differ: %s vs %s", implicit.Canonical(), explicit.Canonical())
	}
}

// TestNormalize_Determinism checks every permutation of the same query
// produces the same params and key.
func TestNormalize_Determinism(t *testing.T) {
	pairs := [][2]string{
		{"type", "mirror"},
		{"page", "2"},
		{"page_size", "12"},
		{"q", "tower"},
		{"sort", "popular"},
		{"sort_order", "asc"},
		{"is_update", "false"},
		{"ignored", "x"},
	}

	reference := Normalize(OpMangaList, parseOrdered(pairs), nil).Canonical()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := make([][2]string, len(pairs))
		copy(shuffled, pairs)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Normalize(OpMangaList, parseOrdered(shuffled), nil).Canonical()
		if got != reference {
			t.Fatalf("permutation %d: key %s, want %s", i, got, reference)
		}
	}
}

func TestNormalize_RepeatedParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"ascending repeats", "page=2&page=3", "2"},
		{"descending repeats", "page=3&page=2", "2"},
		{"blank repeat ignored", "page=&page=4", "4"},
		{"all blank", "page=&page=%20", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery(%q) error = %v", tt.query, err)
			}
			if got := Normalize(OpMangaList, raw, nil).Get("page"); got != tt.want {
				t.Errorf("page = %s, want %s", got, tt.want)
			}
		})
	}

	a, _ := url.ParseQuery("page=2&page=3&type=mirror")
	b, _ := url.ParseQuery("type=mirror&page=3&page=2")
	if ka, kb := Normalize(OpMangaList, a, nil).Canonical(), Normalize(OpMangaList, b, nil).Canonical(); ka != kb {
		t.Errorf("keys differ for reordered repeats: %s vs %s", ka, kb)
	}
}

// parseOrdered builds url.Values by parsing a raw query string in the given order.
func parseOrdered(pairs [][2]string) url.Values {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, url.QueryEscape(p[0])+"="+url.QueryEscape(p[1]))
	}
	v, _ := url.ParseQuery(strings.Join(parts, "&"))
	return v
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"search with q", Normalize(OpSearch, url.Values{"q": {"solo"}}, nil), false},
		{"search without q", Normalize(OpSearch, url.Values{}, nil), true},
		{"search with blank q", Normalize(OpSearch, url.Values{"q": {"   "}}, nil), true},
		{"detail with id", Normalize(OpMangaDetail, nil, map[string]string{"id": "1"}), false},
		{"detail without id", Normalize(OpMangaDetail, nil, nil), true},
		{"list has no required fields", Normalize(OpMangaList, nil, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMissingParam) {
				t.Errorf("Validate() error = %v, want ErrMissingParam", err)
			}
		})
	}
}

func TestParams_With(t *testing.T) {
	base := Normalize(OpMangaList, nil, nil)
	top := base.With("page_size", "24")

	if base.Query["page_size"] != "30" {
		t.Errorf("With mutated the receiver: page_size = %s", base.Query["page_size"])
	}
	if top.Query["page_size"] != "24" {
		t.Errorf("page_size = %s, want 24", top.Query["page_size"])
	}
}

func TestNormalize_UnknownOperation(t *testing.T) {
	p := Normalize(Operation("nope"), url.Values{"page": {"1"}}, nil)

	if len(p.Query) != 0 || len(p.Path) != 0 {
		t.Errorf("unknown operation should normalize to empty params, got %+v", p)
	}
	if p.Canonical() != "manga:nope" {
		t.Errorf("Canonical() = %s, want manga:nope", p.Canonical())
	}
}
