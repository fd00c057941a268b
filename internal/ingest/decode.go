package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"probevault/internal/icache"
	"probevault/internal/probeitem"
)

// DecodeItem turns a decoded JSON record into a probeitem.Item, picking
// the concrete kind from the record's "kind" field.
func DecodeItem(obj map[string]any) (icache.Item, error) {
	kind := strings.ToLower(fmt.Sprint(obj["kind"]))
	switch probeitem.Kind(kind) {
	case probeitem.KindFile:
		return &probeitem.FileItem{
			Path:   stringField(obj, "path"),
			Mode:   stringField(obj, "mode"),
			Owner:  stringField(obj, "owner"),
			Group:  stringField(obj, "group"),
			Size:   int64Field(obj, "size"),
			SHA256: stringField(obj, "sha256"),
		}, nil
	case probeitem.KindPackage:
		return &probeitem.PackageItem{
			Name:    stringField(obj, "name"),
			Version: stringField(obj, "version"),
			Arch:    stringField(obj, "arch"),
			Vendor:  stringField(obj, "vendor"),
		}, nil
	default:
		return nil, fmt.Errorf("ingest: unrecognized item kind %q", kind)
	}
}

// DecodeItemBytes unmarshals a single JSON object and decodes it.
func DecodeItemBytes(data []byte) (icache.Item, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return DecodeItem(obj)
}

func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

func int64Field(obj map[string]any, key string) int64 {
	v, ok := obj[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
