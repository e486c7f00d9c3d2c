package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/epie-vm/epie/emulator"
	"github.com/epie-vm/epie/vm"
)

func dumpState(state vm.FinalState) {
	for n, value := range state.Registers {
		fmt.Printf("$%-2d %08x", n, uint32(value))
		if n%4 == 3 {
			fmt.Println()
		} else {
			fmt.Print("  ")
		}
	}
	fmt.Printf("equality: %v  remainder: %v  steps: %v\n",
		state.Equality, state.Remainder, state.Steps)
}

func main() {
	var compile string
	var image string
	var save string
	var memory int
	var limit int
	var verbose bool
	var registers bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&image, "i", "", ".epie image file to execute")
	flag.StringVar(&save, "s", "", "Save the compiled image, do not execute")
	flag.IntVar(&memory, "m", emulator.MEMORY_SIZE, "Machine memory size in bytes")
	flag.IntVar(&limit, "l", 0, "Step limit, 0 for unlimited")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&registers, "r", false, "Dump machine state after execution")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}
	if (compile == "") == (image == "") {
		log.Fatalf("%v: Need exactly one of -c or -i", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Output = os.Stdout
	emu.MemorySize = memory
	emu.StepLimit = limit

	switch {
	case compile != "":
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		if err = emu.LoadSource(inf); err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

	case image != "":
		raw, err := os.ReadFile(image)
		if err != nil {
			log.Fatalf("%v: %v", image, err)
		}

		if err = emu.LoadImage(raw); err != nil {
			log.Fatalf("%v: %v", image, err)
		}
	}

	if save != "" {
		if err := os.WriteFile(save, emu.Image.Bytes(), 0o644); err != nil {
			log.Fatalf("%v: %v", save, err)
		}
		return
	}

	state := emu.Run()
	if registers {
		dumpState(state)
	}
	if state.Fault != nil {
		log.Fatal(state.Fault)
	}
}
