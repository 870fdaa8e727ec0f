// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPoint se devuelve para coordenadas fuera de rango.
var ErrInvalidPoint = errors.New("coordenadas inválidas")

// Bounds es un rectángulo de latitud y longitud.
type Bounds struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLng float64 `yaml:"min_lng"`
	MaxLng float64 `yaml:"max_lng"`
}

// PeruBounds cubre el territorio peruano con un margen de ~1 grado para
// errores de precisión.
// Perú: aproximadamente 0°S a 18.4°S, 68.6°W a 81.4°W.
var PeruBounds = Bounds{
	MinLat: -19.5,
	MaxLat: 1.0,
	MinLng: -82.5,
	MaxLng: -67.5,
}

// IsZero indica si no hay límites configurados.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Validate verifica que las coordenadas sean válidas.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return fmt.Errorf("%w: NaN", ErrInvalidPoint)
	}

	// Límites globales
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitud debe estar entre -90 y 90 (recibido: %f)", ErrInvalidPoint, p.Lat)
	}

	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: longitud debe estar entre -180 y 180 (recibido: %f)", ErrInvalidPoint, p.Lng)
	}

	return nil
}

// ValidateWithin es Validate más una verificación de límites. Límites vacíos
// no restringen.
func (p Point) ValidateWithin(b Bounds) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if b.IsZero() {
		return nil
	}

	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return fmt.Errorf("%w: latitud fuera de los límites (%f a %f): %f", ErrInvalidPoint, b.MinLat, b.MaxLat, p.Lat)
	}

	if p.Lng < b.MinLng || p.Lng > b.MaxLng {
		return fmt.Errorf("%w: longitud fuera de los límites (%f a %f): %f", ErrInvalidPoint, b.MinLng, b.MaxLng, p.Lng)
	}

	return nil
}
