//go:build js && wasm

package main

import (
	"syscall/js"
	"unsafe"

	"github.com/dkoerner/pluck/pluck"
)

// All exported functions run on the JS audio thread, so the engine needs no
// locking here.
var (
	engine       *pluck.Engine
	outputBuffer []float32
)

const maxBlockFrames = 128

func main() {
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmNoteOn", js.FuncOf(wasmNoteOn))
	js.Global().Set("wasmNoteOff", js.FuncOf(wasmNoteOff))
	js.Global().Set("wasmControlChange", js.FuncOf(wasmControlChange))
	js.Global().Set("wasmPitchBend", js.FuncOf(wasmPitchBend))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM pluck module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return false
	}
	sampleRate := args[0].Int()
	polyphony := 16
	if len(args) > 1 {
		polyphony = args[1].Int()
	}

	e, err := pluck.NewEngine(sampleRate, polyphony, pluck.NewDefaultParams())
	if err != nil {
		println("engine init failed:", err.Error())
		return false
	}
	engine = e
	outputBuffer = make([]float32, maxBlockFrames*2)

	println("pluck engine initialized at", sampleRate, "Hz")
	return true
}

func wasmNoteOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || engine == nil {
		return nil
	}
	engine.NoteOn(args[0].Int(), args[1].Int())
	return nil
}

func wasmNoteOff(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.NoteOff(args[0].Int())
	return nil
}

func wasmControlChange(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || engine == nil {
		return nil
	}
	engine.ControlChange(args[0].Int(), args[1].Int())
	return nil
}

func wasmPitchBend(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.PitchBend(args[0].Int())
	return nil
}

// wasmProcessBlock renders up to 128 stereo frames and returns the byte
// offset of the interleaved output inside WASM linear memory.
func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return 0
	}

	numFrames := args[0].Int()
	if numFrames > maxBlockFrames {
		numFrames = maxBlockFrames
	}
	if numFrames < 1 {
		return 0
	}

	copy(outputBuffer, engine.Process(numFrames))

	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
