//go:build js && wasm

package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"syscall/js"
	"time"

	"github.com/goccy/go-json"

	"github.com/lucasjlepore/techjournal"
	"github.com/lucasjlepore/techjournal/export"
)

func main() {
	js.Global().Set("parseActivity", js.FuncOf(parseActivity))
	select {}
}

// parseActivity(fileBytes Uint8Array, options {file_name, format, output})
// returns {ok, activity, warnings} plus either a zip bundle (output "zip",
// the default) or the full JSON result (output "json").
func parseActivity(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return failure("expected arguments: fileBytes(Uint8Array), options(object)")
	}
	fileArg := args[0]
	var optsArg js.Value
	if len(args) > 1 {
		optsArg = args[1]
	}
	if fileArg.IsUndefined() || fileArg.IsNull() || fileArg.Get("length").Int() == 0 {
		return failure("activity file bytes are required")
	}

	data := make([]byte, fileArg.Get("length").Int())
	if n := js.CopyBytesToGo(data, fileArg); n == 0 {
		return failure("failed to read file bytes from JS input")
	}

	name := getString(optsArg, "file_name", "input.fit")
	res, err := techjournal.ParseBytes(name, data)
	if err != nil {
		return failure(err.Error())
	}
	activity, err := json.Marshal(res.Activity)
	if err != nil {
		return failure(fmt.Sprintf("marshal activity: %v", err))
	}

	out := map[string]any{
		"ok":       true,
		"activity": string(activity),
		"warnings": stringsToAny(res.Warnings),
	}

	if getString(optsArg, "output", "zip") == "json" {
		full, err := json.Marshal(res)
		if err != nil {
			return failure(fmt.Sprintf("marshal result: %v", err))
		}
		out["json"] = string(full)
		return out
	}

	files, err := export.Bundle(res, export.Options{Format: getString(optsArg, "format", "parquet")})
	if err != nil {
		return failure(err.Error())
	}
	zipBytes, err := zipArtifacts(files)
	if err != nil {
		return failure(fmt.Sprintf("create zip: %v", err))
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	out["zip"] = payload
	out["files"] = stringsToAny(sortedKeys(files))
	return out
}

func failure(msg string) map[string]any {
	return map[string]any{"ok": false, "error": msg}
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	epoch := time.Unix(0, 0).UTC()

	for _, name := range sortedKeys(files) {
		h := &zip.FileHeader{Name: name, Method: zip.Deflate}
		h.SetModTime(epoch)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedKeys(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() || v.Type() != js.TypeObject {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() || out.Type() != js.TypeString {
		return fallback
	}
	if s := out.String(); s != "" {
		return s
	}
	return fallback
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
