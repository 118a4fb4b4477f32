package assemble

import (
	"newsreel/internal/renderplan"
)

// ComposeOverlay fixes the compositing order: base animated image,
// branding frame when enabled, captions, then an optional watermark on
// top. It describes layers only; the encoder does the pixel work.
func ComposeOverlay(enabled bool, brandingImage, watermarkImage string) renderplan.Overlay {
	layers := []renderplan.Layer{{Kind: renderplan.LayerBase}}
	if enabled && brandingImage != "" {
		layers = append(layers, renderplan.Layer{Kind: renderplan.LayerBranding, Source: brandingImage})
	}
	layers = append(layers, renderplan.Layer{Kind: renderplan.LayerCaptions})
	if watermarkImage != "" {
		layers = append(layers, renderplan.Layer{Kind: renderplan.LayerWatermark, Source: watermarkImage})
	}
	return renderplan.Overlay{Enabled: enabled && brandingImage != "", Layers: layers}
}
