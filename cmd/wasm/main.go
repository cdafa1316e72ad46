//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"retrodetect/pkg/photo"
	"retrodetect/pkg/report"
	"retrodetect/pkg/retrodetect"
)

var (
	detector  *retrodetect.Retrodetect
	lastFrame *retrodetect.Frame
	lastCands []*retrodetect.Candidate
	lastThres float64
)

func main() {
	js.Global().Set("resetDetector", js.FuncOf(resetDetector))
	js.Global().Set("processFrame", js.FuncOf(processFrame))
	js.Global().Set("renderOverlay", js.FuncOf(renderOverlay))
	select {} // block forever
}

func resetDetector(this js.Value, args []js.Value) interface{} {
	if detector != nil {
		detector.Reset()
	}
	lastFrame, lastCands = nil, nil
	return js.Null()
}

// processFrame(fileBytes, name, threshold, source?) runs one frame through the
// shared detector and returns the label records as a JSON string.
func processFrame(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorResult("usage: processFrame(fileBytes, name, threshold, source)")
	}

	jsBytes := args[0]
	length := jsBytes.Get("length").Int()
	fileBytes := make([]byte, length)
	js.CopyBytesToGo(fileBytes, jsBytes)

	name := args[1].String()
	threshold := args[2].Float()
	source := "retrodetect"
	if len(args) >= 4 && args[3].Type() == js.TypeString {
		source = args[3].String()
	}

	p, err := photo.Decode(fileBytes, name)
	if err != nil {
		return errorResult("decode error: " + err.Error())
	}

	if detector == nil {
		detector, err = retrodetect.New(nil)
		if err != nil {
			return errorResult(err.Error())
		}
	}
	cands, err := detector.Process(p)
	if err != nil {
		return errorResult("detection error: " + err.Error())
	}
	lastFrame, lastCands, lastThres = p.Img, cands, threshold

	data, err := json.Marshal(report.Records(cands, threshold, source))
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(map[string]interface{}{
		"records": string(data),
		"index":   detector.Index(),
	})
}

func renderOverlay(this js.Value, args []js.Value) interface{} {
	if lastFrame == nil {
		return js.Null()
	}

	img, err := report.RenderOverlay(lastFrame, lastCands, lastThres)
	if err != nil {
		return js.Null()
	}
	jpegBytes, err := report.OverlayBytes(img)
	if err != nil {
		return js.Null()
	}

	uint8Array := js.Global().Get("Uint8Array").New(len(jpegBytes))
	js.CopyBytesToJS(uint8Array, jpegBytes)
	return uint8Array
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
