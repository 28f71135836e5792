//go:build rp2040

package hal

import (
	"context"
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"dcload-go/drivers/ad7175"
	"dcload-go/drivers/dac8811"
)

// Board bundles the analog capabilities plus the console port for one target.
type Board struct {
	Source  AnalogSource
	Sink    DriveSink
	Console io.ReadWriter

	Sim *Sim // nil on hardware targets
}

// Pin assignments for the rev-A control board.
const (
	pinADCSck = machine.GPIO2
	pinADCTx  = machine.GPIO3
	pinADCRx  = machine.GPIO4

	pinDACSck  = machine.GPIO10
	pinDACTx   = machine.GPIO11
	pinDACLdac = machine.GPIO12

	pinConsoleTx = machine.GPIO0
	pinConsoleRx = machine.GPIO1
)

// NewBoard configures the two SPI buses, probes the converter and wires the
// console UART. The ADC samples current, voltage and temperature round-robin
// at 1 ksps so every control tick sees fresh codes on all three channels.
func NewBoard() (*Board, error) {
	if err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 5_000_000,
		SCK:       pinADCSck,
		SDO:       pinADCTx,
		SDI:       pinADCRx,
		Mode:      3,
	}); err != nil {
		return nil, err
	}
	// The DAC latches on SCLK rising edges with idle-low clock (mode 0);
	// 500 kHz is the rate validated on the rev-A board.
	if err := machine.SPI1.Configure(machine.SPIConfig{
		Frequency: 500_000,
		SCK:       pinDACSck,
		SDO:       pinDACTx,
		Mode:      0,
	}); err != nil {
		return nil, err
	}

	adc := ad7175.New(machine.SPI0)
	err := adc.Init(ad7175.Config{
		ODR:    ad7175.ODR1k,
		IntRef: true,
		Channels: []ad7175.ChannelConfig{
			{Num: uint8(ChCurrent), Setup: 0, Pos: ad7175.AIN0, Neg: ad7175.AIN1, Buffers: true},
			{Num: uint8(ChVoltage), Setup: 1, Pos: ad7175.AIN2, Neg: ad7175.AIN3, Buffers: true},
			{Num: uint8(ChTemp), Setup: 2, Pos: ad7175.AIN4, Neg: ad7175.RefNeg, Buffers: true},
		},
	})
	if err != nil {
		return nil, err
	}

	ldac := pinDACLdac
	ldac.Configure(machine.PinConfig{Mode: machine.PinOutput})
	dac := dac8811.New(machine.SPI1, func(level bool) { ldac.Set(level) })
	if err := dac.Shutdown(); err != nil {
		return nil, err
	}

	_ = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       pinConsoleTx,
		RX:       pinConsoleRx,
	})

	return &Board{
		Source:  NewADCSource(adc),
		Sink:    NewDACSink(dac),
		Console: &uartPort{u: uartx.UART0},
	}, nil
}

// uartPort adapts uartx to io.ReadWriter for the console line reader.
type uartPort struct{ u *uartx.UART }

func (p *uartPort) Write(b []byte) (int, error) { return p.u.Write(b) }

func (p *uartPort) Read(b []byte) (int, error) {
	return p.u.RecvSomeContext(context.Background(), b)
}
