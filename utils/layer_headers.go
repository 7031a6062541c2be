package utils

import "net/http"

// LayerHeaders merges header maps, later layers overriding earlier ones. An
// empty value in a later layer removes the header set below it.
func LayerHeaders(layers ...map[string]string) http.Header {
	h := make(http.Header)
	for _, layer := range layers {
		for k, v := range layer {
			if v == "" {
				h.Del(k)
				continue
			}
			h.Set(k, v)
		}
	}
	return h
}
