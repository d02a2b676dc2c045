package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-recplay/midi"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	defer midi.CloseDriver()

	var err error
	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		err = monitor(arg(2, "0"))
	case "poll":
		pollDevices()
	case "note":
		err = playNote(arg(2, "0"), arg(3, "C3"))
	case "patch":
		err = selectPatch(arg(2, "0"), os.Args[3:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func arg(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                      - List all MIDI ports")
	fmt.Println("  monitor [in]              - Print messages from an input")
	fmt.Println("  poll                      - Poll for device changes")
	fmt.Println("  note [out] [name]         - Play one note (e.g. C3, F#2)")
	fmt.Println("  patch [out] msb lsb prog  - Send bank select + program change")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct{ ins, outs []string }
	ch := make(chan result, 1)
	go func() {
		ins, outs := midi.ListPorts()
		ch <- result{ins, outs}
	}()

	select {
	case r := <-ch:
		for i, name := range r.ins {
			fmt.Printf("  %d: %s\n", i, name)
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, name := range r.outs {
			fmt.Printf("  %d: %s\n", i, name)
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

func monitor(ref string) error {
	in, err := midi.OpenInPort(ref, nil)
	if err != nil {
		return err
	}
	defer in.Close()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", in.Name())
	start := time.Now()
	unsubscribe := in.Subscribe(func(msg gomidi.Message) {
		fmt.Printf("%10s  % X  %s\n", time.Since(start).Truncate(time.Millisecond), []byte(msg), msg.String())
	})
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a device to test. Ctrl+C to exit.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := midi.NewWatcher(nil, 2*time.Second, nil)
	go w.Run(ctx)
	for ev := range w.Events() {
		fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
		fmt.Printf("  Inputs: %v\n", ev.Ins)
		fmt.Printf("  Outputs: %v\n", ev.Outs)
	}
}

func playNote(ref, name string) error {
	note, err := midi.NoteNumber(name)
	if err != nil {
		return err
	}
	out, err := midi.OpenOutPort(ref, nil)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Printf("Playing %s (%d) on %s\n", name, note, out.Name())
	if err := midi.PlayNote(context.Background(), out, 0, note, 100, 500*time.Millisecond); err != nil {
		return err
	}
	// let the note-off go out before the port closes
	time.Sleep(600 * time.Millisecond)
	return nil
}

func selectPatch(ref string, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("patch needs msb lsb program, got %d values", len(args))
	}
	var vals [3]uint8
	for i, s := range args {
		n, err := strconv.ParseUint(s, 10, 7)
		if err != nil {
			return fmt.Errorf("bad patch value %q: %w", s, err)
		}
		vals[i] = uint8(n)
	}
	out, err := midi.OpenOutPort(ref, nil)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := midi.SelectPatch(out, 0, vals[0], vals[1], vals[2]); err != nil {
		return err
	}
	fmt.Printf("Selected %d/%d/%d on %s\n", vals[0], vals[1], vals[2], out.Name())
	return nil
}
