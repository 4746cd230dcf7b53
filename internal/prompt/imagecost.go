// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// imagecost.go - OpenAI-style image token cost computation.
package prompt

import (
	"bytes"
	"math"

	"github.com/disintegration/imaging"

	"github.com/halcyonforge/loom/internal/model"
)

// Image cost constants for the OpenAI tiling formula.
const (
	imageBaseTokens = 85
	imageTileTokens = 170
	imageTileSize   = 512
	imageMaxDim     = 2048
	imageShortSide  = 768

	// videoTokenCost is a flat conservative estimate; true duration is
	// typically unknown at assembly time.
	videoTokenCost = 10000
)

// imageTokenCost computes the token cost of an encoded image under the given
// detail level. Any decode or computation failure falls back to the flat
// per-image base cost.
func imageTokenCost(data []byte, detail model.ImageDetail) int {
	if detail == model.DetailLow {
		return imageBaseTokens
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		debugf("image decode failed, using base cost: %v", err)
		return imageBaseTokens
	}
	bounds := img.Bounds()
	return tileTokenCost(bounds.Dx(), bounds.Dy(), detail)
}

// tileTokenCost implements the tiling formula for known pixel dimensions:
// fit within 2048x2048 preserving aspect ratio, rescale the shorter side to
// 768px, tile into 512x512 squares, cost = tiles*170 + 85.
func tileTokenCost(width, height int, detail model.ImageDetail) int {
	if width <= 0 || height <= 0 {
		return imageBaseTokens
	}
	if detail == model.DetailLow {
		return imageBaseTokens
	}
	if detail == model.DetailAuto && width <= imageTileSize && height <= imageTileSize {
		return imageBaseTokens
	}

	w, h := float64(width), float64(height)

	if w > imageMaxDim || h > imageMaxDim {
		scale := math.Min(imageMaxDim/w, imageMaxDim/h)
		w *= scale
		h *= scale
	}

	short := math.Min(w, h)
	scale := imageShortSide / short
	w *= scale
	h *= scale

	tiles := int(math.Ceil(w/imageTileSize)) * int(math.Ceil(h/imageTileSize))
	return tiles*imageTileTokens + imageBaseTokens
}
