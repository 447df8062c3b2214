package recommend

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joseph-ayodele/guidify/constants"
)

//go:embed data/colleges.json
var defaultColleges []byte

//go:embed data/nsqf_courses.json
var defaultNSQF []byte

type College struct {
	Name        string `json:"name"`
	Stream      string `json:"stream"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Type        string `json:"type,omitempty"`
	Established int    `json:"established,omitempty"`
	Website     string `json:"website,omitempty"`
}

type NSQFCourse struct {
	CourseName string `json:"course_name"`
	Level      int    `json:"nsqf_level"`
	Sector     string `json:"sector,omitempty"`
}

// Catalog holds the verified datasets. It is read-only after load.
type Catalog struct {
	Colleges []College
	Courses  []NSQFCourse
}

// LoadCatalog reads the datasets at the given paths. An empty path uses
// the built-in dataset.
func LoadCatalog(collegesPath, nsqfPath string) (*Catalog, error) {
	c := &Catalog{}
	if err := decodeDataset(collegesPath, defaultColleges, &c.Colleges); err != nil {
		return nil, fmt.Errorf("load college catalog: %w", err)
	}
	if err := decodeDataset(nsqfPath, defaultNSQF, &c.Courses); err != nil {
		return nil, fmt.Errorf("load nsqf catalog: %w", err)
	}
	return c, nil
}

// DefaultCatalog returns the built-in datasets.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog("", "")
	if err != nil {
		panic(err)
	}
	return c
}

func decodeDataset(path string, builtin []byte, dst any) error {
	data := builtin
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		data = b
	}
	return json.Unmarshal(data, dst)
}

// CollegesFor returns up to limit colleges of the given stream, or the
// first limit colleges when none match.
func (c *Catalog) CollegesFor(stream string, limit int) []College {
	want, _ := constants.CanonicalStream(stream)
	var out []College
	for _, col := range c.Colleges {
		got, _ := constants.CanonicalStream(col.Stream)
		if strings.EqualFold(string(got), string(want)) {
			out = append(out, col)
			if len(out) == limit {
				return out
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	return append([]College(nil), c.Colleges[:min(limit, len(c.Colleges))]...)
}

// CoursesAt returns courses whose NSQF level is one of levels, in catalog order.
func (c *Catalog) CoursesAt(levels []int) []NSQFCourse {
	var out []NSQFCourse
	for _, course := range c.Courses {
		for _, lv := range levels {
			if course.Level == lv {
				out = append(out, course)
				break
			}
		}
	}
	return out
}
