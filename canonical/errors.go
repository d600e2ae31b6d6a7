package canonical

import "errors"

var (
	// ErrUnsupportedFormat is returned when no decoder is registered for a
	// file's extension.
	ErrUnsupportedFormat = errors.New("unsupported activity format")
	// ErrMalformedLap is returned when a lap lacks a required field. It fails
	// the whole file.
	ErrMalformedLap = errors.New("malformed lap")
	// ErrMalformedPoint marks a point that carries a position element without
	// usable coordinates. Decoders drop such points and keep going.
	ErrMalformedPoint = errors.New("malformed track point")
	// ErrNoLocationData is returned when a file yields no geolocated points.
	ErrNoLocationData = errors.New("no location data")
	// ErrDecompression is returned for corrupt gzip input.
	ErrDecompression = errors.New("decompression failed")
)
