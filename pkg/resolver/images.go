package resolver

import "strings"

// ImageURLs joins the asset host, the chapter path and each file name, in
// the order the files are given.
func ImageURLs(baseURL, path string, files []string) []string {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		urls = append(urls, base+path+f)
	}
	return urls
}

// WithImageURLs adds an "images" list to a chapter detail document that
// carries base_url, chapter.path and chapter.data. The fields are looked up
// on the document itself or on its "data" object. Documents without a file
// list are returned untouched.
func WithImageURLs(payload any) any {
	doc, ok := payload.(map[string]any)
	if !ok {
		return payload
	}

	target := doc
	if data, ok := doc["data"].(map[string]any); ok {
		target = data
	}

	baseURL, _ := target["base_url"].(string)
	chapter, _ := target["chapter"].(map[string]any)
	if baseURL == "" || chapter == nil {
		return payload
	}

	path, _ := chapter["path"].(string)
	rawFiles, ok := chapter["data"].([]any)
	if !ok {
		return payload
	}

	files := make([]string, 0, len(rawFiles))
	for _, f := range rawFiles {
		if name, ok := f.(string); ok && name != "" {
			files = append(files, name)
		}
	}

	urls := ImageURLs(baseURL, path, files)
	images := make([]any, len(urls))
	for i, u := range urls {
		images[i] = u
	}
	target["images"] = images

	return payload
}
