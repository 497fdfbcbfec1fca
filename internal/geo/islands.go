// Package geo classifies WGS84 points against the fixed set of Hawaiian
// island regions and normalizes user-supplied island names.
package geo

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unknown is returned by Classify when a point falls outside every island
// polygon.
const Unknown = "Unknown or offshore"

var ErrUnknownIsland = errors.New("island not recognized")

// MapCenter is the default camera position downstream map renderers use for
// an island.
type MapCenter struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom float64 `json:"zoom"`
}

// Island is a named region with a simple boundary polygon in (lon, lat)
// vertex order.
type Island struct {
	Name    string
	Polygon [][2]float64
	Center  MapCenter
}

// Islands is the fixed region set. Classification tests polygons in this
// order and the first containing polygon wins, so the order is part of the
// output contract.
var Islands = []Island{
	{
		Name:    "Hawaii (Big Island)",
		Polygon: [][2]float64{{-156.1, 18.9}, {-154.7, 18.9}, {-154.7, 20.3}, {-156.1, 20.3}},
		Center:  MapCenter{Lat: 19.5, Lon: -155.5, Zoom: 8},
	},
	{
		Name:    "Maui",
		Polygon: [][2]float64{{-156.8, 20.5}, {-156.2, 20.5}, {-156.2, 21.0}, {-156.8, 21.0}},
		Center:  MapCenter{Lat: 20.8, Lon: -156.3, Zoom: 9},
	},
	{
		Name:    "Oahu",
		Polygon: [][2]float64{{-158.3, 21.2}, {-157.6, 21.2}, {-157.6, 21.8}, {-158.3, 21.8}},
		Center:  MapCenter{Lat: 21.44, Lon: -157.9, Zoom: 9.5},
	},
	{
		Name:    "Kauai",
		Polygon: [][2]float64{{-159.8, 21.8}, {-159.2, 21.8}, {-159.2, 22.3}, {-159.8, 22.3}},
		Center:  MapCenter{Lat: 22.1, Lon: -159.5, Zoom: 9.5},
	},
	{
		Name:    "Molokai",
		Polygon: [][2]float64{{-157.4, 20.5}, {-156.7, 20.5}, {-156.7, 21.2}, {-157.4, 21.2}},
		Center:  MapCenter{Lat: 21.13, Lon: -157.02, Zoom: 9.5},
	},
	{
		Name:    "Lānai",
		Polygon: [][2]float64{{-157.1, 20.7}, {-156.8, 20.7}, {-156.8, 21.0}, {-157.1, 21.0}},
		Center:  MapCenter{Lat: 20.83, Lon: -156.92, Zoom: 10},
	},
	{
		Name:    "Niihau",
		Polygon: [][2]float64{{-160.3, 21.8}, {-160.0, 21.8}, {-160.0, 22.0}, {-160.3, 22.0}},
		Center:  MapCenter{Lat: 21.9, Lon: -160.15, Zoom: 10},
	},
	{
		Name:    "Kahoolawe",
		Polygon: [][2]float64{{-156.7, 20.5}, {-156.5, 20.5}, {-156.5, 20.7}, {-156.7, 20.7}},
		Center:  MapCenter{Lat: 20.6, Lon: -156.6, Zoom: 10},
	},
}

// AllIslandsCenter frames the whole archipelago.
var AllIslandsCenter = MapCenter{Lat: 20.5, Lon: -157, Zoom: 6.5}

// Classify returns the name of the first island whose polygon contains the
// point, or Unknown. It is total: any finite coordinate pair yields exactly
// one answer.
func Classify(lat, lon float64) string {
	for _, isl := range Islands {
		if pointInPolygon(lat, lon, isl.Polygon) {
			return isl.Name
		}
	}
	return Unknown
}

// Match resolves a user-supplied island name to its canonical form using a
// case-insensitive, diacritic-folding substring match, so "Lanai" and
// "lānaʻi" both resolve to "Lānai". All leniency lives here; call sites see
// only canonical names.
func Match(name string) (string, error) {
	n := normalizeName(name)
	for _, isl := range Islands {
		if strings.Contains(normalizeName(isl.Name), n) {
			return isl.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIsland, name)
}

// Lookup returns the island with the given canonical name.
func Lookup(name string) (Island, bool) {
	for _, isl := range Islands {
		if isl.Name == name {
			return isl, true
		}
	}
	return Island{}, false
}

// stripMarks removes combining marks after NFD decomposition, turning "ā"
// into "a".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeName(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}
	// The ʻokina is a letter, not a combining mark.
	folded = strings.ReplaceAll(folded, "ʻ", "")
	folded = strings.ReplaceAll(folded, "'", "")
	return strings.ToLower(folded)
}

// pointInPolygon uses ray casting. Vertices are (lon, lat) pairs, so
// poly[i][0] is longitude and poly[i][1] is latitude.
func pointInPolygon(lat, lon float64, poly [][2]float64) bool {
	n := len(poly)
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := poly[i][0], poly[i][1]
		xj, yj := poly[j][0], poly[j][1]
		if ((yi > lat) != (yj > lat)) &&
			(lon < (xj-xi)*(lat-yi)/(yj-yi)+xi) {
			inside = !inside
		}
	}
	return inside
}
