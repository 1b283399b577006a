// BMP-specific structs and types
package bmp

const (
	fileHeaderSize = 14 // Bytes in BitmapFileHeader
	infoHeaderSize = 40 // Bytes in BitmapInfoHeader (BITMAPINFOHEADER)
	bytesPerPixel  = 3  // 24 bit: one byte each for B, G and R
)

// "BM", little-endian 0x4d42
var signature = [2]byte{0x42, 0x4d}

// The BitmapFileHeader structure contains information about the type, size,
// and layout of a file that contains a DIB [device-independent bitmap].
// https://learn.microsoft.com/en-us/windows/win32/api/wingdi/ns-wingdi-bitmapfileheader

type BitmapFileHeader struct {
	Type      [2]byte // The file type: must be 0x4d42 (ASCII string "BM").
	Size      uint32  // The size, in bytes, of the bitmap file.
	Reserved1 uint16  // Reserved; must be zero.
	Reserved2 uint16  // Reserved; must be zero.
	OffBits   uint32  // Bitmap File Offset (In bytes) to Pixel Arrays
}

// The BitmapInfoHeader structure contains information about the
// dimensions and color format of DIB [device-independent bitmap].

type BitmapInfoHeader struct {
	Size            uint32 // The number of bytes required by the structure.
	Width           int32  // The width of the bitmap, in pixels.
	Height          int32  // The height of the bitmap, in pixels
	Planes          uint16 // The number of planes for the target device.
	BitCount        uint16 // The number of bits-per-pixel.
	Compression     uint32 // The type of compression
	SizeImage       uint32 // The size of the image (in bytes).
	XPixelsPerM     int32  // The horizontal resolution, in pixels-per-meter.
	YPixelsPerM     int32  // The vertical resolution, in pixels-per-meter.
	ColorsUsed      uint32 // Number of color indexes that are actually used by bitmap.
	ColorsImportant uint32 // Number of color indexes required for displaying the bitmap.
}

// Total bytes in a pixel row, padded to a multiple of 4
func rowStride(width int) int {
	return ((width*bytesPerPixel + 3) / 4) * 4
}

// Builds fresh headers describing a bottom-up 24 bit uncompressed bitmap
func newHeaders(width, height int) (BitmapFileHeader, BitmapInfoHeader) {
	sizeImage := uint32(rowStride(width) * height)

	bfh := BitmapFileHeader{
		Type:    signature,
		Size:    fileHeaderSize + infoHeaderSize + sizeImage,
		OffBits: fileHeaderSize + infoHeaderSize,
	}
	bih := BitmapInfoHeader{
		Size:      infoHeaderSize,
		Width:     int32(width),
		Height:    int32(height),
		Planes:    1,
		BitCount:  24,
		SizeImage: sizeImage,
	}
	return bfh, bih
}
