package InputParameters

import (
	"fmt"
	"io"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type InputParameters struct {
	Title             string                     `yaml:"Title"`
	QuadratureOrder   int                        `yaml:"QuadratureOrder"`
	Components        int                        `yaml:"Components"`
	DofOffset         int                        `yaml:"DofOffset"`
	Conductivity      float64                    `yaml:"Conductivity"`
	Source            float64                    `yaml:"Source"`
	MeanConstraint    bool                       `yaml:"MeanConstraint"` // Couple a constant space with one unknown per component after the field
	IntegrationPolicy string                     `yaml:"IntegrationPolicy"`
	Parallel          int                        `yaml:"Parallel"`
	BLAS              *bool                      `yaml:"BLAS"`
	Regions           map[int]map[string]float64 `yaml:"Regions"` // First key is the cell tag, second is parameter name
}

func (ip *InputParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return err
	}
	return ip.setDefaults()
}

func (ip *InputParameters) setDefaults() error {
	if ip.QuadratureOrder == 0 {
		ip.QuadratureOrder = 2
	}
	if ip.Components == 0 {
		ip.Components = 1
	}
	if ip.Conductivity == 0 {
		ip.Conductivity = 1
	}
	if ip.Parallel == 0 {
		ip.Parallel = 1
	}
	if ip.IntegrationPolicy == "" {
		ip.IntegrationPolicy = "LogAndContinue"
	}
	switch {
	case ip.QuadratureOrder < 1 || ip.QuadratureOrder > 2:
		return fmt.Errorf("QuadratureOrder must be 1 or 2, have %d", ip.QuadratureOrder)
	case ip.Components < 0 || ip.DofOffset < 0 || ip.Parallel < 0:
		return fmt.Errorf("Components, DofOffset and Parallel must not be negative")
	}
	return nil
}

// RegionValue returns the named parameter of a cell tag, or def when the
// region does not set it.
func (ip *InputParameters) RegionValue(tag int, name string, def float64) float64 {
	if v, ok := ip.Regions[tag][name]; ok {
		return v
	}
	return def
}

func (ip *InputParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Quadrature Order\n", ip.QuadratureOrder)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Components\n", ip.Components)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Dof Offset\n", ip.DofOffset)
	fmt.Fprintf(w, "%8.5f\t\t= Conductivity\n", ip.Conductivity)
	fmt.Fprintf(w, "%8.5f\t\t= Source\n", ip.Source)
	fmt.Fprintf(w, "[%v]\t\t\t\t= Mean Constraint\n", ip.MeanConstraint)
	fmt.Fprintf(w, "[%s]\t= Integration Policy\n", ip.IntegrationPolicy)
	fmt.Fprintf(w, "[%d]\t\t\t\t= Parallel\n", ip.Parallel)
	if ip.BLAS != nil {
		fmt.Fprintf(w, "[%v]\t\t\t\t= BLAS\n", *ip.BLAS)
	}
	tags := make([]int, 0, len(ip.Regions))
	for k := range ip.Regions {
		tags = append(tags, k)
	}
	sort.Ints(tags)
	for _, tag := range tags {
		fmt.Fprintf(w, "Regions[%d] = %v\n", tag, ip.Regions[tag])
	}
}
