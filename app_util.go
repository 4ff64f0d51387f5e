package nebula

// PathListFromString splits a URL path into its components.
//
// Examples:
//   - "/static/app.js" → ["static", "app.js"]
//   - "/users" → ["users"]
//   - "/" → [""] (single empty component)
//   - "/static/" → ["static"]
//
// Route matching never goes through this function (routes are exact strings); it is
// used to inspect the first segment of a path, e.g. for the static mount.
func PathListFromString(path string) []string {
	if len(path) <= 1 {
		return []string{""}
	}
	route := []string{}
	start := 1
	end := 1
	for end < len(path) {
		if path[end] == '/' {
			route = append(route, path[start:end])
			start = end + 1
		}
		end++
	}
	if start != end || start == 1 {
		route = append(route, path[start:end])
	}
	return route
}

// firstSegment returns the first component of path, or "" for the root path.
func firstSegment(path string) string {
	return PathListFromString(path)[0]
}
