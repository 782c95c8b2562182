// Package target identifies a survey object to fit
package target

import "fmt"

// Target is one object of a spectroscopic production
type Target struct {
	TargetID int64   `json:"targetid"`
	SpecProd string  `json:"specprod"`
	Survey   string  `json:"survey"`
	Program  string  `json:"program"`
	Healpix  int     `json:"healpix"`
	Z        float64 `json:"z"`
}

func (t Target) String() string {
	return fmt.Sprintf("%d (%s/%s/%s hp%d z=%.4f)", t.TargetID, t.SpecProd, t.Survey, t.Program, t.Healpix, t.Z)
}
