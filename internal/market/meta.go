package market

// AssetIndex resolves a coin to its numeric asset id: the position of the
// matching entry in the meta universe.
func AssetIndex(meta map[string]any, coin string) (int, bool) {
	if meta == nil || coin == "" {
		return 0, false
	}
	universe, ok := toSlice(meta["universe"])
	if !ok {
		return 0, false
	}
	for i, entry := range universe {
		m, ok := toMap(entry)
		if !ok {
			continue
		}
		if stringFromAny(m["name"]) == coin {
			return i, true
		}
	}
	return 0, false
}
