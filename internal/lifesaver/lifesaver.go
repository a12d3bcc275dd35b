// Package lifesaver turns usage percentages into the "device life saved"
// figures shown on the dashboard. Every coefficient is configuration; the
// numbers are presentation flavor, not a model of hardware wear.
package lifesaver

import (
	"fmt"
	"math"
)

// Band maps a usage value onto a factor: below Low yields LowBonus, below Mid
// yields MidBonus, anything else yields Penalty.
type Band struct {
	Low      float64 `yaml:"low"`
	Mid      float64 `yaml:"mid"`
	LowBonus float64 `yaml:"low_bonus"`
	MidBonus float64 `yaml:"mid_bonus"`
	Penalty  float64 `yaml:"penalty"`
}

func (b Band) below(v float64) float64 {
	if v < b.Low {
		return b.LowBonus
	}
	if v < b.Mid {
		return b.MidBonus
	}
	return b.Penalty
}

// HealthBand is the inverse of Band, used for disk health where higher is
// better: above High yields HighBonus, above Mid yields MidBonus.
type HealthBand struct {
	High      float64 `yaml:"high"`
	Mid       float64 `yaml:"mid"`
	HighBonus float64 `yaml:"high_bonus"`
	MidBonus  float64 `yaml:"mid_bonus"`
	Penalty   float64 `yaml:"penalty"`
}

func (b HealthBand) above(v float64) float64 {
	if v > b.High {
		return b.HighBonus
	}
	if v > b.Mid {
		return b.MidBonus
	}
	return b.Penalty
}

// Coefficients holds every tunable used by Estimate and the boost actions.
type Coefficients struct {
	BaseLifeYears float64    `yaml:"base_life_years"`
	CPU           Band       `yaml:"cpu"`
	RAM           Band       `yaml:"ram"`
	Disk          HealthBand `yaml:"disk"`

	// Health score = 100 - CPUWeight*cpu - RAMWeight*ram, clamped to [0,100].
	CPUWeight float64 `yaml:"cpu_weight"`
	RAMWeight float64 `yaml:"ram_weight"`

	DaysPerMonth float64 `yaml:"days_per_month"`

	// Months credited by each optimization action.
	BoostRAMMonths  float64 `yaml:"boost_ram_months"`
	CleanJunkMonths float64 `yaml:"clean_junk_months"`
	OptimizeMonths  float64 `yaml:"optimize_months"`
}

// DefaultCoefficients returns the stock dashboard values.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		BaseLifeYears: 5.0,
		CPU:           Band{Low: 30, Mid: 60, LowBonus: 0.2, MidBonus: 0.1, Penalty: -0.2},
		RAM:           Band{Low: 40, Mid: 70, LowBonus: 0.15, MidBonus: 0.05, Penalty: -0.15},
		Disk:          HealthBand{High: 85, Mid: 70, HighBonus: 0.15, MidBonus: 0.05, Penalty: -0.2},
		CPUWeight:     0.2,
		RAMWeight:     0.2,
		DaysPerMonth:  30.44,

		BoostRAMMonths:  0.1,
		CleanJunkMonths: 0.2,
		OptimizeMonths:  0.4,
	}
}

// Validate rejects coefficient sets that cannot produce a sensible display.
func (c Coefficients) Validate() error {
	if c.BaseLifeYears <= 0 {
		return fmt.Errorf("lifesaver: base life must be positive, got %v", c.BaseLifeYears)
	}
	if c.DaysPerMonth <= 0 {
		return fmt.Errorf("lifesaver: days per month must be positive, got %v", c.DaysPerMonth)
	}
	if c.CPU.Low > c.CPU.Mid || c.RAM.Low > c.RAM.Mid {
		return fmt.Errorf("lifesaver: usage band low threshold above mid threshold")
	}
	if c.Disk.High < c.Disk.Mid {
		return fmt.Errorf("lifesaver: disk band high threshold below mid threshold")
	}
	return nil
}

// Estimate is the result of one life-saver evaluation.
type Estimate struct {
	ProjectedYears float64
	SavedYears     float64
	HealthScore    int
}

// SavedMonths is SavedYears expressed in months.
func (e Estimate) SavedMonths() float64 {
	return e.SavedYears * 12
}

// Calculator evaluates Coefficients against live usage.
type Calculator struct {
	coeff Coefficients
}

func NewCalculator(c Coefficients) *Calculator {
	return &Calculator{coeff: c}
}

// Coefficients returns the calculator's configuration.
func (c *Calculator) Coefficients() Coefficients {
	return c.coeff
}

// Estimate computes projected life, life saved and the health score for the
// given usage percentages and the persisted bonus months.
func (c *Calculator) Estimate(cpu, ram, disk, savedMonths float64) Estimate {
	k := c.coeff
	diskHealth := 100 - disk

	total := k.BaseLifeYears +
		k.CPU.below(cpu) +
		k.RAM.below(ram) +
		k.Disk.above(diskHealth) +
		savedMonths/12

	score := 100 - cpu*k.CPUWeight - ram*k.RAMWeight
	score = math.Max(0, math.Min(100, score))

	return Estimate{
		ProjectedYears: total,
		SavedYears:     math.Max(0, total-k.BaseLifeYears),
		HealthScore:    int(math.Round(score)),
	}
}

// FormatSaved renders life saved as "+N Days" below one month and
// "+X.X Months" otherwise.
func (c *Calculator) FormatSaved(e Estimate) string {
	months := e.SavedMonths()
	if months < 1 {
		return fmt.Sprintf("+%d Days", int(math.Round(months*c.coeff.DaysPerMonth)))
	}
	return fmt.Sprintf("+%.1f Months", months)
}

// FormatProjected renders the projected lifespan, e.g. "5.3 Years".
func FormatProjected(e Estimate) string {
	return fmt.Sprintf("%.1f Years", e.ProjectedYears)
}

// BoostMessage is the toast text shown after months are credited.
func (c *Calculator) BoostMessage(months float64) string {
	var display string
	if months < 1 {
		display = fmt.Sprintf("%d days", int(math.Round(months*c.coeff.DaysPerMonth)))
	} else {
		display = fmt.Sprintf("%g month(s)", months)
	}
	return fmt.Sprintf("Device health improved! +%s added to lifespan via AI optimization.", display)
}
