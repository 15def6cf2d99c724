package postshot

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	"github.com/k1LoW/errors"
)

type MIMEType string

const (
	MIMETypeImagePNG  MIMEType = "image/png"
	MIMETypeImageJPEG MIMEType = "image/jpeg"
	MIMETypeImageGIF  MIMEType = "image/gif"
)

// Image is an encoded raster plus its lazily decoded form.
// Images are immutable once created.
type Image struct {
	i        image.Image
	b        []byte // Raw image data
	mimeType MIMEType
	width    int
	height   int
	checksum uint32                 // Checksum for the image data
	pHash    *goimagehash.ImageHash // Perceptual hash
}

// NewImage reads an encoded image from r.
func NewImage(r io.Reader) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return NewImageFromBytes(b)
}

// NewImageFromFile reads an encoded image file.
func NewImageFromFile(path string) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer f.Close()
	return NewImage(f)
}

// NewImageFromBytes wraps encoded image bytes after checking that they can be decoded.
func NewImageFromBytes(b []byte) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	cfg, mimeType, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	var mt MIMEType
	switch mimeType {
	case "png":
		mt = MIMETypeImagePNG
	case "jpeg":
		mt = MIMETypeImageJPEG
	case "gif":
		mt = MIMETypeImageGIF
	default:
		return nil, fmt.Errorf("unsupported image MIME type: %s", mimeType)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("empty image: %dx%d", cfg.Width, cfg.Height)
	}
	return &Image{
		b:        b,
		mimeType: mt,
		width:    cfg.Width,
		height:   cfg.Height,
	}, nil
}

// newImageFromRaster encodes img as PNG.
func newImageFromRaster(img image.Image) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &Image{
		i:        img,
		b:        buf.Bytes(),
		mimeType: MIMETypeImagePNG,
		width:    b.Dx(),
		height:   b.Dy(),
	}, nil
}

func (i *Image) Width() int {
	if i == nil {
		return 0
	}
	return i.width
}

func (i *Image) Height() int {
	if i == nil {
		return 0
	}
	return i.height
}

func (i *Image) MIMEType() MIMEType {
	return i.mimeType
}

// Equivalent reports whether two images look the same.
// Identical bytes are equivalent; otherwise a perceptual hash distance below 5 is.
func (i *Image) Equivalent(ii *Image) bool {
	if i == nil || ii == nil {
		return false
	}
	if i.Checksum() == ii.Checksum() {
		return true
	}
	if i.width != ii.width || i.height != ii.height {
		return false
	}
	aHash, err := i.PHash()
	if err != nil {
		return false
	}
	bHash, err := ii.PHash()
	if err != nil {
		return false
	}
	distance, err := aHash.Distance(bHash)
	if err != nil {
		return false
	}
	return distance < 5 // threshold for similarity
}

func (i *Image) Checksum() uint32 {
	if i == nil {
		return 0
	}
	if i.checksum == 0 {
		i.checksum = crc32.ChecksumIEEE(i.b)
	}
	return i.checksum
}

func (i *Image) Image() (image.Image, error) {
	if i == nil {
		return nil, fmt.Errorf("image is nil")
	}
	if i.i == nil {
		img, _, err := image.Decode(bytes.NewReader(i.b))
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		i.i = img
	}
	return i.i, nil
}

func (i *Image) PHash() (_ *goimagehash.ImageHash, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if i == nil {
		return nil, fmt.Errorf("image is nil")
	}
	if _, err := i.Image(); err != nil {
		return nil, err
	}
	if i.pHash == nil {
		pHash, err := goimagehash.PerceptionHash(i.i)
		if err != nil {
			return nil, fmt.Errorf("failed to compute perceptual hash: %w", err)
		}
		i.pHash = pHash
	}
	return i.pHash, nil
}

func (i *Image) Bytes() []byte {
	if i == nil {
		return nil
	}
	return i.b
}
