// Package iceburn programs the SPI flash of a Lattice iCEblink40 evaluation
// board through the board's vendor USB protocol.
//
// The board exposes two bulk endpoint pairs: a command pair carrying
// length-prefixed frames and a data pair carrying raw SPI or register bytes.
// [Board] owns the USB transport and hands out the [GPIO], [SPIPort] and [Comm]
// sub-resources. [Flash] drives the M25P10 part through any periph.io
// [spi.Conn], and [Program] sequences erase, page program and verify.
//
// # References:
//
// Board
//   - [Lattice-iCEblink40]: iCEblink40 Evaluation Kit User's Guide (EB67)
//   - [iCE40-Config]: iCE40 Programming and Configuration (TN1248)
//
// SPI Flash
//   - [M25P10-A]: M25P10-A 1-Mbit serial Flash memory, 50 MHz SPI bus interface
//
// [spi.Conn]: https://pkg.go.dev/periph.io/x/conn/v3/spi#Conn
package iceburn
