package components

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/arvelo/siteplot/internal/engine/geo"
	"github.com/arvelo/siteplot/internal/tui/styles"
)

// Marker is one rendered map marker (a cluster of one or more projects).
type Marker struct {
	Key       string
	Lat       float64
	Lng       float64
	Glyph     rune
	Color     lipgloss.Color
	Badge     string // member count for aggregated markers
	Hovered   bool
	Activated bool
}

// closeZoom is the zoom level applied when a marker is activated.
const closeZoom = 12.0

// MapView renders markers and an optional footprint ring over a braille
// canvas.
type MapView struct {
	width     int
	height    int
	markers   []Marker
	footprint [][2]float64 // closed ring of (lat, lng), drawn as line segments
	// Viewport bounds
	minLat, maxLat float64
	minLng, maxLng float64
	// Base bounds (for zoom reference)
	basMinLat, basMaxLat float64
	basMinLng, basMaxLng float64
	zoomLevel            float64 // 1.0 = no zoom, >1 = zoomed in
	maxZoomLevel         float64
	panLat, panLng       float64 // pan offset in degrees
}

func NewMapView(width, height int) MapView {
	return MapView{
		width:        width,
		height:       height,
		zoomLevel:    1.0,
		maxZoomLevel: 20,
	}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *MapView) SetMarkers(markers []Marker) {
	m.markers = markers
	// No refit here: the viewport is fitted once per session and then
	// owned by the user.
}

// ApplyFit installs a computed viewport fit as the base bounds.
func (m *MapView) ApplyFit(f geo.Fit) {
	latPad := (f.MaxLat - f.MinLat) * f.Padding
	lngPad := (f.MaxLng - f.MinLng) * f.Padding
	if latPad == 0 {
		latPad = 0.01
	}
	if lngPad == 0 {
		lngPad = 0.01
	}
	m.basMinLat = f.MinLat - latPad
	m.basMaxLat = f.MaxLat + latPad
	m.basMinLng = f.MinLng - lngPad
	m.basMaxLng = f.MaxLng + lngPad

	m.maxZoomLevel = 20
	if f.Wide {
		m.maxZoomLevel = f.MaxZoom
	}
	m.zoomLevel = 1.0
	m.panLat = 0
	m.panLng = 0
	m.applyZoom()
}

// CenterOn pans the viewport to a coordinate at close zoom (marker
// activation).
func (m *MapView) CenterOn(lat, lng float64) {
	baseCenterLat := (m.basMinLat + m.basMaxLat) / 2
	baseCenterLng := (m.basMinLng + m.basMaxLng) / 2
	m.panLat = lat - baseCenterLat
	m.panLng = lng - baseCenterLng
	m.zoomLevel = closeZoom
	if m.zoomLevel > m.maxZoomLevel {
		m.zoomLevel = m.maxZoomLevel
	}
	m.applyZoom()
}

func (m *MapView) SetFootprint(ring [][2]float64) {
	m.footprint = ring
}

func (m *MapView) ClearFootprint() {
	m.footprint = nil
}

func (m *MapView) ZoomIn() {
	m.zoomLevel *= 1.5
	if m.zoomLevel > m.maxZoomLevel {
		m.zoomLevel = m.maxZoomLevel
	}
	m.applyZoom()
}

func (m *MapView) ZoomOut() {
	m.zoomLevel /= 1.5
	if m.zoomLevel < 0.5 {
		m.zoomLevel = 0.5
	}
	m.applyZoom()
}

func (m *MapView) ZoomReset() {
	m.zoomLevel = 1.0
	m.panLat = 0
	m.panLng = 0
	m.applyZoom()
}

func (m *MapView) Pan(dLat, dLng float64) {
	latRange := m.basMaxLat - m.basMinLat
	lngRange := m.basMaxLng - m.basMinLng
	m.panLat += dLat * latRange * 0.1 / m.zoomLevel
	m.panLng += dLng * lngRange * 0.1 / m.zoomLevel
	m.applyZoom()
}

func (m *MapView) applyZoom() {
	centerLat := (m.basMinLat+m.basMaxLat)/2 + m.panLat
	centerLng := (m.basMinLng+m.basMaxLng)/2 + m.panLng
	halfLat := (m.basMaxLat - m.basMinLat) / 2 / m.zoomLevel
	halfLng := (m.basMaxLng - m.basMinLng) / 2 / m.zoomLevel
	m.minLat = centerLat - halfLat
	m.maxLat = centerLat + halfLat
	m.minLng = centerLng - halfLng
	m.maxLng = centerLng + halfLng
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	cols := m.width
	rows := m.height
	dotW := cols * 2
	dotH := rows * 4

	latRange := m.maxLat - m.minLat
	lngRange := m.maxLng - m.minLng
	if latRange == 0 || lngRange == 0 {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows)
	}

	// Aspect ratio correction: 1° lng is shorter than 1° lat at higher
	// latitudes. Braille dots are roughly square on screen.
	avgLat := (m.minLat + m.maxLat) / 2
	cosLat := math.Cos(avgLat * math.Pi / 180)
	geoW := lngRange * cosLat
	geoH := latRange

	geoAspect := geoW / geoH
	dotAspect := float64(dotW) / float64(dotH)

	effectiveW, effectiveH := dotW, dotH
	offsetX, offsetY := 0, 0
	if geoAspect < dotAspect {
		effectiveW = int(float64(dotH) * geoAspect)
		if effectiveW < 4 {
			effectiveW = 4
		}
		offsetX = (dotW - effectiveW) / 2
	} else {
		effectiveH = int(float64(dotW) / geoAspect)
		if effectiveH < 4 {
			effectiveH = 4
		}
		offsetY = (dotH - effectiveH) / 2
	}

	ringGrid := make([][]bool, dotH)
	for i := range ringGrid {
		ringGrid[i] = make([]bool, dotW)
	}

	toDot := func(lat, lng float64) (int, int) {
		x := offsetX + int((lng-m.minLng)/lngRange*float64(effectiveW-1))
		y := offsetY + int((m.maxLat-lat)/latRange*float64(effectiveH-1))
		return x, y
	}

	// Draw the footprint ring as connected line segments (Bresenham).
	for i := 0; i+1 < len(m.footprint); i++ {
		x0, y0 := toDot(m.footprint[i][0], m.footprint[i][1])
		x1, y1 := toDot(m.footprint[i+1][0], m.footprint[i+1][1])
		drawLine(ringGrid, x0, y0, x1, y1, dotW, dotH)
	}

	// Place markers on character cells, drawn over the ring layer.
	type cellMarker struct {
		text  string
		style lipgloss.Style
	}
	cells := make(map[[2]int]cellMarker)
	for _, mk := range m.markers {
		dx, dy := toDot(mk.Lat, mk.Lng)
		if dx < 0 || dx >= dotW || dy < 0 || dy >= dotH {
			continue
		}
		col, row := dx/2, dy/4

		style := lipgloss.NewStyle().Foreground(mk.Color)
		if mk.Activated {
			style = style.Bold(true).Reverse(true)
		} else if mk.Hovered {
			style = style.Bold(true).Underline(true)
		}

		text := string(mk.Glyph)
		if mk.Badge != "" {
			text += mk.Badge
		}
		cells[[2]int{row, col}] = cellMarker{text: text, style: style}
	}

	ringStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		skip := 0
		for col := 0; col < cols; col++ {
			if skip > 0 {
				skip--
				continue
			}
			if cm, ok := cells[[2]int{row, col}]; ok {
				sb.WriteString(cm.style.Render(cm.text))
				// A badge occupies the following cells on this row.
				skip = utf8.RuneCountInString(cm.text) - 1
				continue
			}

			var ringVal rune = 0x2800
			dotPositions := [8][2]int{
				{0, 0}, {1, 0}, {2, 0}, {0, 1},
				{1, 1}, {2, 1}, {3, 0}, {3, 1},
			}
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if dy < dotH && dx < dotW && ringGrid[dy][dx] {
					ringVal |= brailleDots[dot]
				}
			}

			if ringVal != 0x2800 {
				sb.WriteString(ringStyle.Render(string(ringVal)))
			} else {
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(grid [][]bool, x0, y0, x1, y1, maxW, maxH int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && x0 < maxW && y0 >= 0 && y0 < maxH {
			grid[y0][x0] = true
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
