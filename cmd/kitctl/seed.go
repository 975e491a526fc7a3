package main

import (
	"fmt"
	"math/rand"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hydrakit/internal/configurator"
	"hydrakit/internal/model"
	"hydrakit/internal/router"
)

var (
	flagSeedCount int
	flagSeedValue int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create random sessions on both lines, for load and recovery drills",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			ids, err := seed(a, flagSeedCount, rand.New(rand.NewSource(flagSeedValue)))
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			log.Infof("seeded %d sessions", len(ids))
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().IntVar(&flagSeedCount, "count", 100, "number of sessions to create")
	seedCmd.Flags().Int64Var(&flagSeedValue, "seed", 1, "random seed")
	rootCmd.AddCommand(seedCmd)
}

var (
	brands      = []string{"Kubota", "John Deere", "Massey Ferguson", "New Holland", "Case IH"}
	driveTypes  = []string{"2WD", "4WD"}
	protections = []string{"cab", "rops"}
)

func pick[T any](rnd *rand.Rand, xs []T) T {
	return xs[rnd.Intn(len(xs))]
}

// seed creates n sessions alternating between the lines. Every selection is
// drawn from the registry, so each one is accepted by the stores.
func seed(a *app, n int, rnd *rand.Rand) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.NewString()
		var err error
		if i%2 == 0 {
			err = seedTrac360(a, id, rnd)
		} else {
			err = seedFunction360(a, id, rnd)
		}
		if err != nil {
			return ids, fmt.Errorf("session %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedTrac360(a *app, id string, rnd *rand.Rand) error {
	st, err := configurator.OpenTrac360(id, a.deps())
	if err != nil {
		return err
	}
	ti := model.TractorInfo{
		Brand:          pick(rnd, brands),
		Model:          fmt.Sprintf("M%d", 4000+rnd.Intn(6000)),
		DriveType:      pick(rnd, driveTypes),
		ProtectionType: pick(rnd, protections),
	}
	if err := st.SetTractorInfo(ti); err != nil {
		return err
	}
	vs := pick(rnd, a.registry.ValveSetups())
	if err := st.SetValveSetup(vs.ID); err != nil {
		return err
	}
	ops := a.registry.OperationTypesFor(vs.ID)
	if len(ops) == 0 {
		return nil
	}
	op := pick(rnd, ops)
	if err := st.SetOperationType(op.ID); err != nil {
		return err
	}
	if circuits := router.CircuitOptions(a.registry, vs.Code, op.ID); len(circuits) > 0 {
		return st.SetCircuits(pick(rnd, circuits).ID)
	}
	return nil
}

func seedFunction360(a *app, id string, rnd *rand.Rand) error {
	st, err := configurator.OpenFunction360(id, a.deps())
	if err != nil {
		return err
	}
	hp := pick(rnd, []model.Horsepower{model.HPBelow50, model.HPAbove50})
	ft := pick(rnd, []model.FunctionType{model.FunctionElectric3rd, model.FunctionElectric3rd4th})
	if err := st.SetEquipment(hp, ft); err != nil {
		return err
	}
	for _, k := range model.ComponentKeys {
		if rnd.Intn(2) == 0 {
			continue
		}
		if err := st.ToggleComponent(k, true); err != nil {
			return err
		}
	}
	return nil
}
