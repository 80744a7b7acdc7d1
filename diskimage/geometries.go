package diskimage

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed geometries.toml
var embeddedGeometriesTOML string

// Geometry is a named disk layout preset decoded from the embedded TOML
// table. The fixed-geometry backends do not consult it; they use the
// constants in types.go.
type Geometry struct {
	Name            string `toml:"name"`
	Sides           int    `toml:"sides"`
	Tracks          int    `toml:"tracks"`
	SectorsPerTrack int    `toml:"sectors_per_track"`
	SectorSize      int    `toml:"sector_size"`
}

type geometryTable struct {
	Geometry []Geometry `toml:"geometry"`
}

var geometries map[string]Geometry

func init() {
	var table geometryTable
	if _, err := toml.Decode(embeddedGeometriesTOML, &table); err != nil {
		panic(fmt.Sprintf("diskimage: malformed embedded geometries.toml: %v", err))
	}
	geometries = make(map[string]Geometry, len(table.Geometry))
	for _, g := range table.Geometry {
		geometries[g.Name] = g
	}
}

// GetGeometry looks up a named preset.
func GetGeometry(name string) (Geometry, error) {
	g, ok := geometries[name]
	if !ok {
		return Geometry{}, fmt.Errorf("diskimage: no geometry preset named %q", name)
	}
	return g, nil
}

// TotalSizeBytes returns the raw image size this geometry implies.
func (g Geometry) TotalSizeBytes() int64 {
	return int64(g.Sides) * int64(g.Tracks) * int64(g.SectorsPerTrack) * int64(g.SectorSize)
}

func geometryNames() []string {
	names := make([]string, 0, len(geometries))
	for name := range geometries {
		names = append(names, name)
	}
	return names
}
