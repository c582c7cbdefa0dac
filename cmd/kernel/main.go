// Command kernel is the boot entrypoint, the Go-idiomatic counterpart
// to a bare-metal KernelMain(r0, r1, atags) entry: bring up the
// console, parse the boot parameters the bootloader left behind,
// extract the ramdisk, validate and hand off to init, then drive the
// scheduler until every runnable thread has had a turn.
//
// This tree carries no replacement for hand-written boot.s/assembly
// linkage (see DESIGN.md). Real hardware bring-up would substitute
// asmport.Regs's MMIO windows for the asmport.NewMemRegs placeholders
// wired here and supply the real bootloader-provided ATAG/FDT and
// initrd bytes in place of BootInputs.
package main

import (
	"fmt"
	"os"

	"pikernel/internal/asmport"
	"pikernel/internal/bootcfg"
	"pikernel/internal/elfload"
	"pikernel/internal/framebuffer"
	"pikernel/internal/initrd"
	"pikernel/internal/kernel"
	"pikernel/internal/kpanic"
	"pikernel/internal/mailbox"
	"pikernel/internal/uart"
	"pikernel/internal/uartlog"
	"pikernel/internal/vm"
)

// screenWidth/screenHeight are the framebuffer geometry requested at
// boot; QEMU's VideoCore model and real hardware both accept this as
// a conservative default regardless of the attached display.
const (
	screenWidth = 640
	screenHeight = 480
)

// BootInputs are the raw bytes a bootloader hands the kernel at entry:
// the ATAG or FDT blob in r2, and the ramdisk image already relocated
// to a known physical range, mirroring KernelMain's (r0, r1, atags)
// parameters generalized to slices instead of a bare pointer.
type BootInputs struct {
	BootParams []byte
	Initrd []byte
}

func main() {
	regs := asmport.NewMemRegs(64)
	dev := uart.NewQEMUVirt(regs)

	inputs, err := loadBootInputs()
	if err != nil {
		kpanic.Fatal(dev, "reading boot inputs: %v", err)
	}

	if err := boot(dev, inputs); err != nil {
		kpanic.Fatal(dev, "boot failed: %v", err)
	}
}

// loadBootInputs reads the boot parameter blob and ramdisk image from
// the paths a real bootloader would instead leave in memory; this
// host-testable seam is what stands in for that hand-off.
func loadBootInputs() (BootInputs, error) {
	bootParams, err := os.ReadFile(os.Getenv("PIKERNEL_BOOTCFG"))
	if err != nil {
		return BootInputs{}, err
	}
	ramdisk, err := os.ReadFile(os.Getenv("PIKERNEL_INITRD"))
	if err != nil {
		return BootInputs{}, err
	}
	return BootInputs{BootParams: bootParams, Initrd: ramdisk}, nil
}

// boot runs the sequence every build of this kernel follows
// regardless of entry mechanism, factored out of main so tests can
// drive it without os.ReadFile or a real console. The named return
// lets the deferred panic-screen render whatever error boot is about
// to hand back to main, the graphical counterpart to kpanic.Fatal's
// serial line.
func boot(dev uart.Device, inputs BootInputs) (err error) {
	cfg, err := parseBootParams(inputs.BootParams)
	if err != nil {
		return fmt.Errorf("parsing boot parameters: %w", err)
	}

	log := uartlog.New(dev, uartlog.Level(cfg.LogVerbosity))
	log.Infof("booting")
	log.Infof("memory: %d bytes, loglevel %d", cfg.MemorySizeBytes, cfg.LogVerbosity)

	surface := bootFramebuffer(cfg.MemorySizeBytes)
	if surface != nil {
		surface.BootBanner("pikernel", fmt.Sprintf("mem=%dMB loglevel=%d", cfg.MemorySizeBytes/(1<<20), cfg.LogVerbosity))
		surface.Flush()
		defer func() {
			if err != nil {
				surface.PanicScreen(err.Error())
				surface.Flush()
			}
		}()
	}

	image, err := initrd.Extract(inputs.Initrd)
	if err != nil {
		return fmt.Errorf("extracting ramdisk: %w", err)
	}
	initBytes, err := image.Init()
	if err != nil {
		return fmt.Errorf("locating init: %w", err)
	}
	elfImage, err := elfload.Validate(initBytes)
	if err != nil {
		return fmt.Errorf("validating init: %w", err)
	}
	log.Infof("init entry point: %#x, %d segments", elfImage.Entry, len(elfImage.Segments))

	k, err := kernel.New(cfg.MemorySizeBytes, false, false)
	if err != nil {
		return fmt.Errorf("bringing up kernel: %w", err)
	}

	initPID, err := k.Spawn(0, "init", 0)
	if err != nil {
		return fmt.Errorf("spawning init: %w", err)
	}
	handle, _ := k.AddressSpace(initPID)
	if err := loadSegments(k, handle, elfImage); err != nil {
		return fmt.Errorf("loading init segments: %w", err)
	}
	log.Infof("init running as pid %d", initPID)

	// Drive every Ready thread through the scheduler once. Schedule
	// never hands the same thread back without an intervening
	// Ready/HaltSwitch transition (there is no timer-driven preemption
	// yet), so this loop always drains rather than spinning forever.
	scheduled := 0
	for {
		th, ok := k.Procs.Schedule()
		if !ok {
			break
		}
		scheduled++
		log.Infof("scheduled tid %d (pid %d)", th.ID, th.ProcessID)
	}
	log.Infof("scheduler drained after %d thread turn(s)", scheduled)

	if surface != nil {
		surface.SchedulerReadout(schedulerReadoutLines(k))
		surface.Flush()
	}

	return nil
}

// bootFramebuffer negotiates a debug framebuffer over a canned-
// firmware mailbox (internal/mailbox.NewStaticFirmware fills the same
// hosted-stand-in role asmport.NewMemRegs plays for MMIO). Returns nil
// if negotiation fails so boot still completes on a console-only
// target.
func bootFramebuffer(memoryBytes uint64) *framebuffer.Surface {
	const vcMemoryBytes = 64 * 1024 * 1024
	mb := mailbox.New(asmport.NewMemRegs(16), mailbox.NewStaticFirmware(memoryBytes, vcMemoryBytes))
	geom, err := framebuffer.Negotiate(mb, screenWidth, screenHeight)
	if err != nil {
		return nil
	}
	return framebuffer.New(geom)
}

// schedulerReadoutLines snapshots every live process for the
// framebuffer's debug grid.
func schedulerReadoutLines(k *kernel.Kernel) []framebuffer.ProcessLine {
	procs := k.Procs.Snapshot()
	lines := make([]framebuffer.ProcessLine, len(procs))
	for i, p := range procs {
		lines[i] = framebuffer.ProcessLine{PID: uint32(p.ID), Name: p.Name, Priority: p.Priority, State: p.State.String()}
	}
	return lines
}

// parseBootParams tries the ATAG format first, the Raspberry Pi
// target's usual boot path, and falls back to FDT since this kernel
// supports both.
func parseBootParams(raw []byte) (*bootcfg.Config, error) {
	if cfg, err := bootcfg.ParseATAGs(raw); err == nil {
		return cfg, nil
	}
	return bootcfg.ParseFDT(raw)
}

// loadSegments maps one freshly allocated physical frame into handle
// at each PT_LOAD segment's link-time virtual address. The segment's
// file bytes are not copied into the frame, and pages of a segment
// beyond its first are not mapped.
func loadSegments(k *kernel.Kernel, handle vm.Handle, image *elfload.Image) error {
	for _, seg := range image.Segments {
		perm := vm.Read
		if seg.Writable {
			perm |= vm.Write
		}
		if seg.Execute {
			perm |= vm.Execute
		}
		phys, err := k.Frames.FindFreePage(0)
		if err != nil {
			return err
		}
		if err := k.VM.Map(handle, uint64(seg.Virt), phys, vm.Normal, vm.Auto, perm); err != nil {
			return err
		}
	}
	return nil
}
