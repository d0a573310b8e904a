//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package clipboard

import "image"

func WriteImage(image.Image) error {
	return ErrUnsupported
}

func ReadImage() (image.Image, error) {
	return nil, ErrUnsupported
}
