package normalize

import (
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

// ExtractFileResources pulls file descriptors out of format extension
// nodes: per File element the target URL, an optional size, and an
// optional checksum with its algorithm. Files without a URL are skipped.
//
// Attaching these to the draft is gated behind the attach-file-resources
// setting; extraction itself is kept available and tested.
func ExtractFileResources(nodes []oaipmh.Node) []Resource {
	var out []Resource
	for _, node := range nodes {
		for _, file := range node.Child("File") {
			url, _ := FindAttr(file.Attrs, "about")
			if url == "" {
				continue
			}

			res := Resource{URL: url}
			// Should be only one.
			for _, size := range file.Child("size") {
				res.Size = size.Text
			}
			for _, c := range file.Child("checksum") {
				for _, ck := range c.Child("Checksum") {
					for _, gen := range ck.Child("generator") {
						for _, alg := range gen.Child("Algorithm") {
							res.Extra, _ = FindAttr(alg.Attrs, "about")
						}
					}
					for _, v := range ck.Child("checksumValue") {
						res.Hash = v.Text
					}
				}
			}
			out = append(out, res)
		}
	}
	return out
}
