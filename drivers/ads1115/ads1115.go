// Package ads1115 drives the TI ADS1115 16-bit sigma-delta ADC over
// I²C in single-shot mode. The driver is integer-only and allocates
// nothing per call.
package ads1115

import (
	"errors"

	"tinygo.org/x/drivers"
)

var ErrConversionBusy = errors.New("ads1115: conversion in progress")

// Config selects the input, gain and data rate used for conversions.
type Config struct {
	Address  uint16
	Mux      Mux
	Gain     Gain
	DataRate DataRate
}

// DefaultConfig reads AIN0 single-ended at the ±4.096 V range.
func DefaultConfig() Config {
	return Config{
		Address:  AddressDefault,
		Mux:      MuxSingle0,
		Gain:     Gain1,
		DataRate: DR128,
	}
}

// Device represents an ADS1115 instance on an I²C bus.
type Device struct {
	i2c  drivers.I2C
	addr uint16
	cfg  Config

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [2]byte
}

// New constructs a Device with the supplied config.
func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{i2c: i2c, addr: addr, cfg: cfg}
}

// configWord encodes the config register for a single-shot start.
func (d *Device) configWord() uint16 {
	return cfgOS |
		uint16(d.cfg.Mux)<<cfgMuxShift |
		uint16(d.cfg.Gain)<<cfgPGAShift |
		cfgModeBit |
		uint16(d.cfg.DataRate)<<cfgDRShift |
		cfgCompDisable
}

// Connected probes the device by reading the config register.
func (d *Device) Connected() bool {
	_, err := d.readWord(regConfig)
	return err == nil
}

// StartSingle begins one conversion with the configured input, gain
// and rate. The result is ready once Ready reports true.
func (d *Device) StartSingle() error {
	return d.writeWord(regConfig, d.configWord())
}

// Ready reports whether the last started conversion has completed.
// In single-shot mode the OS bit reads 0 while converting.
func (d *Device) Ready() (bool, error) {
	v, err := d.readWord(regConfig)
	if err != nil {
		return false, err
	}
	return v&cfgOS != 0, nil
}

// ReadRaw returns the signed conversion result. Callers are expected
// to have observed Ready first; reading early returns the previous
// result, as the hardware does.
func (d *Device) ReadRaw() (int16, error) {
	v, err := d.readWord(regConversion)
	return int16(v), err
}

// MicroVolts converts a raw code to microvolts at the configured gain.
func (d *Device) MicroVolts(raw int16) int32 {
	// Full scale maps to 0x7FFF.
	return int32(int64(raw) * int64(d.cfg.Gain.FullScaleMicroVolts()) / 0x7FFF)
}

// SetComparator programs the threshold registers. The comparator
// itself stays disabled unless the config word enables it.
func (d *Device) SetComparator(lo, hi int16) error {
	if err := d.writeWord(regLoThresh, uint16(lo)); err != nil {
		return err
	}
	return d.writeWord(regHiThresh, uint16(hi))
}

// I2C 16-bit word operations (big-endian: HIGH then LOW).

func (d *Device) readWord(reg byte) (uint16, error) {
	d.w[0] = reg
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val >> 8)
	d.w[2] = byte(val)
	return d.i2c.Tx(d.addr, d.w[:3], nil)
}
