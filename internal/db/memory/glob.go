package memory

// matchGlob reports whether name matches pattern. It supports the subset of
// Redis glob syntax the repositories use: * ? and \-escapes.
func matchGlob(pattern, name string) bool {
	p := []rune(pattern)
	n := []rune(name)

	// backtracking positions for the most recent *
	star, mark := -1, 0
	pi, ni := 0, 0

	for ni < len(n) {
		if pi < len(p) {
			switch c := p[pi]; {
			case c == '*':
				star, mark = pi, ni
				pi++
				continue
			case c == '?':
				pi++
				ni++
				continue
			case c == '\\' && pi+1 < len(p):
				if p[pi+1] == n[ni] {
					pi += 2
					ni++
					continue
				}
			case c == n[ni]:
				pi++
				ni++
				continue
			}
		}
		if star < 0 {
			return false
		}
		mark++
		pi, ni = star+1, mark
	}

	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
