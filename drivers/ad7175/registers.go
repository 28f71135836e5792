// Register addresses and bitfields for the AD7175-2.

package ad7175

const (
	// Communications register: address in bits 5:0, read flag in bit 6.
	commsRead = 0x40

	// --- Register sub-addresses ---

	regStatus  = 0x00 // R,  1 byte
	regADCMode = 0x01 // RW, 2 bytes
	regIfMode  = 0x02 // RW, 2 bytes
	regData    = 0x04 // R,  3 bytes (4 with DATA_STAT)
	regGPIOCon = 0x06 // RW, 2 bytes
	regID      = 0x07 // R,  2 bytes

	regCh0 = 0x10 // RW, 2 bytes (…regCh0+3)
	// Setup configuration, filter configuration, offset and gain blocks are
	// indexed by setup number 0..3.
	regSetupCon0 = 0x20 // RW, 2 bytes
	regFiltCon0  = 0x28 // RW, 2 bytes
	regOffset0   = 0x30 // RW, 3 bytes
	regGain0     = 0x38 // RW, 3 bytes
)

// STATUS register bits.
const (
	statusNotReady = 1 << 7 // conversion not ready (active low RDY)
	statusADCError = 1 << 6
	statusCRCError = 1 << 5
	statusRegError = 1 << 4
	statusChMask   = 0x03 // source channel of the last conversion
)

// ADCMODE fields.
const (
	adcModeRefEn   = 1 << 15
	adcModeSingCyc = 1 << 13

	// Conversion mode, bits 6:4.
	ModeContinuous  uint16 = 0x0 << 4
	ModeSingle      uint16 = 0x1 << 4
	ModeStandby     uint16 = 0x2 << 4
	ModePowerDown   uint16 = 0x3 << 4
	ModeInternalCal uint16 = 0x4 << 4
	ModeSysOffset   uint16 = 0x6 << 4
	ModeSysGain     uint16 = 0x7 << 4

	adcModeMask uint16 = 0x7 << 4

	// Clock select, bits 3:2 (internal oscillator).
	clkInternal uint16 = 0x0 << 2
)

// IFMODE fields.
const (
	ifModeDataStat = 1 << 6 // append status byte to data reads
)

// CHx register fields.
const (
	chEnable = 1 << 15

	chSetupShift = 12 // bits 13:12
	chAinPosShif = 5  // bits 9:5
	chAinNegShif = 0  // bits 4:0
)

// Analog input selections (CHx AINPOS/AINNEG).
const (
	AIN0    uint16 = 0x00
	AIN1    uint16 = 0x01
	AIN2    uint16 = 0x02
	AIN3    uint16 = 0x03
	AIN4    uint16 = 0x04
	TempPos uint16 = 0x11
	TempNeg uint16 = 0x12
	RefPos  uint16 = 0x15
	RefNeg  uint16 = 0x16
)

// SETUPCONx fields.
const (
	setupBipolar   = 1 << 12
	setupAinBufPos = 1 << 9
	setupAinBufNeg = 1 << 8

	// Reference select, bits 5:4.
	refExternal uint16 = 0x0 << 4
	refInternal uint16 = 0x1 << 4
)

// FILTCONx fields: output data rate in bits 4:0.
const (
	ODR250k uint16 = 0x00
	ODR10k  uint16 = 0x07
	ODR1k   uint16 = 0x0A
	ODR100  uint16 = 0x0E
	ODR20   uint16 = 0x11
)

const (
	// ID register value for the AD7175-2; lower nibble is die revision.
	idExpected = 0x0CD0
	idMask     = 0xFFF0

	// Factory defaults for the offset/gain blocks.
	offsetDefault = 0x800000

	// 24-bit code rails; a sample pinned on either is a wiring/sensor fault.
	codeMin = 0x000000
	codeMax = 0xFFFFFF
)
