package zip

import (
	"archive/zip"
	"bytes"
	"path"
	"strings"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets bundles the assets into a single zip archive, appending a
// file extension derived from the MIME type when the filename has none. A
// batch download as one archive sidesteps browser throttling of rapid
// sequential downloads.
func ArchiveAssets(assets []Asset) []byte {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, asset := range assets {
		if len(asset.Data) == 0 {
			continue
		}
		w, err := zw.Create(entryName(asset))
		if err != nil {
			continue
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil
		}
	}
	_ = zw.Close()
	return buf.Bytes()
}

func entryName(asset Asset) string {
	name := asset.Filename
	if name == "" {
		name = "asset"
	}
	if path.Ext(name) == "" {
		name += extensionByMIME(asset.MIME)
	}
	return name
}

func extensionByMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
