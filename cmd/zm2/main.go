// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ezrec/zm2/config"
	"github.com/ezrec/zm2/cpu"
	"github.com/ezrec/zm2/emulator"
	"github.com/ezrec/zm2/internal"
)

func main() {
	var compile string
	var output string
	var save bool
	var confdir string
	var verbose bool
	var limit int
	var strict bool
	var dump string

	flag.StringVar(&compile, "c", "", ".zas file to assemble")
	flag.StringVar(&output, "o", "", "Story output, with -s")
	flag.BoolVar(&save, "s", false, "Save story, do not execute")
	flag.StringVar(&confdir, "f", "", "Directory containing "+config.FILENAME)
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.IntVar(&limit, "limit", 0, "Instruction limit, 0 for none")
	flag.BoolVar(&strict, "strict", false, "Reject globals that alias the header or stack")
	flag.StringVar(&dump, "dump", "", "Write a snapshot after the machine halts")

	flag.Parse()

	if flag.NArg() > 1 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args()[1:])
	}

	var cfg *config.Config
	var err error
	if len(confdir) != 0 {
		cfg, err = config.Load(confdir)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		log.Fatalf("%v: %v", config.FILENAME, err)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	// Command line settings override the configuration.
	story_path := cfg.Resolve(cfg.Story.Path)
	if flag.NArg() == 1 {
		story_path = flag.Arg(0)
	}
	source := cfg.Resolve(cfg.Story.Source)
	if len(compile) != 0 {
		source = compile
	}
	if len(output) == 0 {
		output = cfg.Resolve(cfg.Story.Output)
	}
	if len(dump) == 0 {
		dump = cfg.Resolve(cfg.Machine.Dump)
	}
	if limit == 0 {
		limit = cfg.Machine.Limit
	}
	verbose = verbose || cfg.Machine.Verbose
	strict = strict || cfg.Machine.StrictGlobals

	if verbose {
		for key, value := range internal.IterSeq2Sorted(emulator.Defines()) {
			log.Printf("%v = %v", key, value)
		}
	}

	var prog *cpu.Program
	var data []byte

	// Assemble a new story.
	if len(source) != 0 {
		inf, err := os.Open(source)
		if err != nil {
			log.Fatalf("%v: %v", source, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emulator.Defines() {
			asm.Predefine(key, value)
		}
		for key, value := range cfg.Equates {
			asm.Predefine(key, value)
		}

		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", source, err)
		}

		data, err = prog.Story(cfg.StoryLayout())
		if err != nil {
			log.Fatalf("%v: %v", source, err)
		}
	} else if len(story_path) != 0 {
		data, err = os.ReadFile(story_path)
		if err != nil {
			log.Fatalf("%v: %v", story_path, err)
		}
	} else {
		log.Fatalf("%v: no story given", os.Args[0])
	}

	if save {
		if len(source) == 0 {
			log.Fatalf("%v: -s needs a source to assemble", os.Args[0])
		}
		if len(output) == 0 {
			output = strings.TrimSuffix(source, filepath.Ext(source)) + ".z2"
		}
		err = os.WriteFile(output, data, 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	emu, err := emulator.Load(data)
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
	emu.Program = prog
	emu.Verbose = verbose
	emu.StrictGlobals = strict

	for done := false; !done; {
		if limit != 0 && emu.Ticks >= limit {
			log.Printf("instruction limit %v reached", limit)
			break
		}
		done, err = emu.Tick()
	}

	if verbose {
		log.Printf("%v", emu.Cpu.String())
	}

	if len(dump) != 0 {
		snap, serr := emulator.MarshalSnapshot(emu.Snapshot())
		if serr == nil {
			serr = os.WriteFile(dump, snap, 0o644)
		}
		if serr != nil {
			log.Fatalf("%v: %v", dump, serr)
		}
	}

	if err != nil {
		log.Fatal(err)
	}
}
