// Package bmp decodes and encodes the classic 54-byte BITMAPINFOHEADER BMP
// variant: 24 bits per pixel, uncompressed (BI_RGB), bottom-up row order,
// 4-byte row alignment. This is the whole-image, single-process codec used
// by the scatter/gather path and the serial oracle; the collective-I/O path
// reads and writes strips directly and does not go through this package.
package bmp

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gostencil/imgtransform/internal/raster"
)

// HeaderSize is the length in bytes of the BITMAPFILEHEADER +
// BITMAPINFOHEADER pair this package understands.
const HeaderSize = 54

// Byte offsets of the header fields this package reads and writes.
const (
	offSignature = 0
	offFileSize  = 2
	offDataStart = 10
	offDibSize   = 14
	offWidth     = 18
	offHeight    = 22
	offPlanes    = 26
	offBpp       = 28
)

// ErrInvalidFormat is returned when the input is not a 24-bpp, uncompressed
// BMP with the 54-byte header this package supports.
type ErrInvalidFormat struct {
	Reason string
}

func (e *ErrInvalidFormat) Error() string {
	return fmt.Sprintf("bmp: invalid format: %s", e.Reason)
}

// Stride returns the on-disk byte length of one row of width w, rounded up
// to a multiple of 4.
func Stride(width int) int {
	return (3*width + 3) &^ 3
}

// Header holds the fields of a parsed BMP header.
type Header struct {
	Width  int
	Height int
}

// ParseHeader validates and parses a 54-byte BMP header.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, &ErrInvalidFormat{Reason: "header shorter than 54 bytes"}
	}
	if buf[offSignature] != 'B' || buf[offSignature+1] != 'M' {
		return Header{}, &ErrInvalidFormat{Reason: "missing 'BM' signature"}
	}
	width := int(int32(binary.LittleEndian.Uint32(buf[offWidth : offWidth+4])))
	height := int(int32(binary.LittleEndian.Uint32(buf[offHeight : offHeight+4])))
	bpp := binary.LittleEndian.Uint16(buf[offBpp : offBpp+2])
	if bpp != 24 {
		return Header{}, &ErrInvalidFormat{Reason: fmt.Sprintf("unsupported bits-per-pixel %d (want 24)", bpp)}
	}
	if width <= 0 || height <= 0 {
		return Header{}, &ErrInvalidFormat{Reason: "non-positive width or height (top-down BMPs are not supported)"}
	}
	return Header{Width: width, Height: height}, nil
}

// WriteHeader renders the 54-byte header for an image of the given
// dimensions into buf, which must be at least HeaderSize bytes.
func WriteHeader(buf []byte, width, height int) {
	for i := range buf[:HeaderSize] {
		buf[i] = 0
	}
	buf[offSignature] = 'B'
	buf[offSignature+1] = 'M'
	fileSize := HeaderSize + height*Stride(width)
	binary.LittleEndian.PutUint32(buf[offFileSize:], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[offDataStart:], HeaderSize)
	binary.LittleEndian.PutUint32(buf[offDibSize:], 40)
	binary.LittleEndian.PutUint32(buf[offWidth:], uint32(width))
	binary.LittleEndian.PutUint32(buf[offHeight:], uint32(height))
	binary.LittleEndian.PutUint16(buf[offPlanes:], 1)
	binary.LittleEndian.PutUint16(buf[offBpp:], 24)
}

// Decode reads a whole 24-bpp BMP image from r.
func Decode(r io.Reader) (*raster.Image, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("bmp: reading header: %w", err)
	}
	h, err := ParseHeader(header)
	if err != nil {
		return nil, err
	}

	stride := Stride(h.Width)
	row := make([]byte, stride)
	img := raster.NewImage(h.Width, h.Height)

	for fileRow := 0; fileRow < h.Height; fileRow++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("bmp: reading row %d: %w", fileRow, err)
		}
		imageRow := h.Height - 1 - fileRow
		dst := img.Row(imageRow)
		for x := 0; x < h.Width; x++ {
			dst[x] = raster.Pixel{
				B: row[3*x],
				G: row[3*x+1],
				R: row[3*x+2],
			}
		}
	}
	return img, nil
}

// Encode writes img to w as a 54-byte-header 24-bpp BMP.
func Encode(w io.Writer, img *raster.Image) error {
	header := make([]byte, HeaderSize)
	WriteHeader(header, img.Width, img.Height)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("bmp: writing header: %w", err)
	}

	stride := Stride(img.Width)
	row := make([]byte, stride)
	for fileRow := 0; fileRow < img.Height; fileRow++ {
		imageRow := img.Height - 1 - fileRow
		src := img.Row(imageRow)
		for x := 0; x < img.Width; x++ {
			row[3*x] = src[x].B
			row[3*x+1] = src[x].G
			row[3*x+2] = src[x].R
		}
		for x := img.Width * 3; x < stride; x++ {
			row[x] = 0
		}
		if _, err := w.Write(row); err != nil {
			return fmt.Errorf("bmp: writing row %d: %w", fileRow, err)
		}
	}
	return nil
}
