//go:build tinygo

package display

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// OLEDRenderer drives a 128x64 SSD1306 over I2C.
type OLEDRenderer struct {
	dev ssd1306.Device
}

func NewOLED(i2c *machine.I2C) *OLEDRenderer {
	dev := ssd1306.NewI2C(i2c)
	dev.Configure(ssd1306.Config{Address: 0x3c, Width: 128, Height: 64})
	dev.ClearDisplay()
	return &OLEDRenderer{dev: dev}
}

// Baselines for five rows of the 8pt font on a 64px panel.
var rowY = [5]int16{10, 23, 36, 49, 62}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func (r *OLEDRenderer) Render(rows [5]string) error {
	r.dev.ClearBuffer()
	for i, row := range rows {
		tinyfont.WriteLine(&r.dev, &proggy.TinySZ8pt7b, 0, rowY[i], row, white)
	}
	return r.dev.Display()
}
