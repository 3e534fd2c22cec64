package calendar

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YearDefinition describes a whole academic cycle, as written in a calendar YAML file:
//
//	cycle:
//	  name: "2025"
//	  start_date: 2025-03-03
//	  end_date: 2025-12-19
//	  is_active: true
//	bimesters:
//	  - number: 1
//	    start_date: 2025-03-03
//	    end_date: 2025-05-09
//	    holidays:
//	      - date: 2025-04-17
//	        description: Holy Thursday
//
// Bimesters without weeks get consecutive Monday-to-Sunday weeks (see GenerateWeeks).
type YearDefinition struct {
	Cycle     NewCycle             `yaml:"cycle"`
	Bimesters []BimesterDefinition `yaml:"bimesters"`
}

type BimesterDefinition struct {
	NewBimester `yaml:",inline"`
	Weeks       []NewWeek    `yaml:"weeks"`
	Holidays    []NewHoliday `yaml:"holidays"`
}

// ParseYearDefinition decodes a YAML YearDefinition. Unknown keys are rejected.
func ParseYearDefinition(r io.Reader) (YearDefinition, error) {
	var def YearDefinition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return YearDefinition{}, errors.Wrap(err, "decoding year definition")
	}
	return def, nil
}

// GenerateWeeks splits the bimester into academic weeks ending on Sundays.
// The first and last weeks may be shorter.
func GenerateWeeks(b Bimester) []Week {
	var weeks []Week
	start := b.StartDate
	for n := 1; !start.After(b.EndDate); n++ {
		end := start.AddDays((7 - int(start.Weekday())) % 7) // next Sunday (or today)
		if end.After(b.EndDate) {
			end = b.EndDate
		}
		weeks = append(weeks, Week{BimesterID: b.ID, Number: n, StartDate: start, EndDate: end})
		start = end.AddDays(1)
	}
	return weeks
}

// Import validates the whole definition, then creates the cycle with its bimesters, weeks and holidays
// in a single transaction: either everything is created or nothing is.
func (svc *Service) Import(ctx context.Context, def YearDefinition) (Cycle, error) {
	if err := svc.validateDefinition(&def); err != nil {
		return Cycle{}, err
	}

	var cycle Cycle
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		var err error
		cycle, err = repo.CreateCycle(ctx, Cycle{
			Name:      def.Cycle.Name,
			StartDate: def.Cycle.StartDate,
			EndDate:   def.Cycle.EndDate,
			IsActive:  def.Cycle.IsActive,
		})
		if err != nil {
			return errors.Wrap(err, "creating cycle")
		}

		for _, bd := range def.Bimesters {
			nb := bd.NewBimester
			if nb.WeeksCount == 0 {
				nb.WeeksCount = len(bd.Weeks)
			}
			b, err := repo.CreateBimester(ctx, Bimester{
				CycleID:    cycle.ID,
				Number:     nb.Number,
				StartDate:  nb.StartDate,
				EndDate:    nb.EndDate,
				IsActive:   nb.IsActive,
				WeeksCount: nb.WeeksCount,
			})
			if err != nil {
				return errors.Wrapf(err, "creating bimester %d", nb.Number)
			}

			for _, nw := range bd.Weeks {
				if _, err = repo.CreateWeek(ctx, Week{
					BimesterID: b.ID,
					Number:     nw.Number,
					StartDate:  nw.StartDate,
					EndDate:    nw.EndDate,
				}); err != nil {
					return errors.Wrapf(err, "creating week %d of bimester %d", nw.Number, b.Number)
				}
			}
			for _, nh := range bd.Holidays {
				if _, err = repo.CreateHoliday(ctx, Holiday{
					BimesterID:  b.ID,
					Date:        nh.Date,
					Description: nh.Description,
					IsRecovered: nh.IsRecovered,
				}); err != nil {
					return errors.Wrapf(err, "creating holiday %s", nh.Date)
				}
			}
		}
		return nil
	})
	if err != nil {
		return Cycle{}, err
	}
	return cycle, nil
}

// validateDefinition validates every entry of `def` against its (not yet created) parent and fills
// in generated weeks.
func (svc *Service) validateDefinition(def *YearDefinition) error {
	if err := def.Cycle.Validate(svc.validate); err != nil {
		return err
	}
	cycle := Cycle{Name: def.Cycle.Name, StartDate: def.Cycle.StartDate, EndDate: def.Cycle.EndDate}

	// placeholder ids: validation only needs them to be set
	const placeholderID = -1

	bims := make([]Bimester, 0, len(def.Bimesters))
	for i := range def.Bimesters {
		bd := &def.Bimesters[i]
		bd.CycleID = placeholderID
		if err := bd.NewBimester.Validate(svc.validate, cycle, bims); err != nil {
			return errors.Wrapf(err, "bimester %d", bd.Number)
		}

		b := Bimester{ID: placeholderID, Number: bd.Number, StartDate: bd.StartDate, EndDate: bd.EndDate}
		bims = append(bims, b)
		if len(bd.Weeks) == 0 {
			for _, w := range GenerateWeeks(b) {
				bd.Weeks = append(bd.Weeks, NewWeek{Number: w.Number, StartDate: w.StartDate, EndDate: w.EndDate})
			}
		}

		existing := make([]Week, 0, len(bd.Weeks))
		for j := range bd.Weeks {
			nw := &bd.Weeks[j]
			nw.BimesterID = placeholderID
			if err := nw.Validate(svc.validate, b, existing); err != nil {
				return errors.Wrapf(err, "bimester %d, week %d", bd.Number, nw.Number)
			}
			existing = append(existing, Week{Number: nw.Number, StartDate: nw.StartDate, EndDate: nw.EndDate})
		}

		for j := range bd.Holidays {
			nh := &bd.Holidays[j]
			nh.BimesterID = placeholderID
			if err := nh.Validate(svc.validate, b); err != nil {
				return errors.Wrapf(err, "bimester %d, holiday %s", bd.Number, nh.Date)
			}
		}
	}
	return nil
}
