package main

import (
	"fmt"

	"github.com/gentam/iceburn"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/physic"
)

// openBoard finds the board and runs fn with it, closing it afterwards.
func openBoard(fn func(*iceburn.Board) error) error {
	b, err := iceburn.Open()
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

// withFlash holds the FPGA in reset so it stays off the SPI bus, opens the
// SPI port, wakes the flash and checks its ID before running fn. Reset is
// released on the way out, which makes the FPGA reconfigure from flash.
func withFlash(b *iceburn.Board, speed physic.Frequency, fn func(*iceburn.Flash) error) error {
	return b.WithGPIO(func(g *iceburn.GPIO) (err error) {
		if err := g.SetReset(true); err != nil {
			return fmt.Errorf("failed to assert FPGA reset: %w", err)
		}
		defer func() {
			if rerr := g.SetReset(false); rerr != nil && err == nil {
				err = fmt.Errorf("failed to release FPGA reset: %w", rerr)
			}
		}()

		return b.WithSPIPort(0, func(p *iceburn.SPIPort) error {
			granted, err := p.SetSpeed(speed)
			if err != nil {
				return err
			}
			glog.V(1).Infof("SPI clock %s (requested %s)", granted, speed)
			if err := p.SetMode(); err != nil {
				return err
			}

			f := iceburn.NewFlash(p)
			if err := f.PowerUp(); err != nil {
				return fmt.Errorf("flash power up failed: %w", err)
			}
			name, err := f.CheckID()
			if err != nil {
				return err
			}
			glog.V(1).Infof("flash %s", name)
			return fn(f)
		})
	})
}

func parseSpeed(s string) (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(s); err != nil {
		return 0, fmt.Errorf("invalid SPI speed %q: %w", s, err)
	}
	return f, nil
}
