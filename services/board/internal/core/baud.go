package core

import "radioboard-go/x/mathx"

// PCLK2Hz is the APB2 clock feeding SPI1 at the 72 MHz system clock.
const PCLK2Hz = 72_000_000

// SPIBaud picks the fastest prescaler (pclk/2 .. pclk/256) that does not
// exceed hz. br is the value for the CR1 BR field.
func SPIBaud(pclk, hz uint32) (br uint8, actual uint32) {
	n := uint(8)
	if hz > 0 {
		n = mathx.Clamp(mathx.CeilLog2(mathx.CeilDiv(pclk, hz)), 1, 8)
	}
	return uint8(n - 1), pclk >> n
}
