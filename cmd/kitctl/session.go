package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hydrakit/internal/configurator"
	"hydrakit/internal/model"
	"hydrakit/internal/pricing"
	"hydrakit/internal/router"
	"hydrakit/internal/validator"
)

var errUsage = errors.New("usage")

var trac360Cmd = &cobra.Command{
	Use:   "trac360 <session> <action> [args...]",
	Short: "Apply a TRAC360 selection and print the live price",
	Long: `Actions:
  show
  tractor <brand> <model> <drive> <protection>
  valve-setup <id|code>
  operation <id>
  circuits <id>
  clear-circuits
  addon-add <id> | addon-remove <id>
  sub-option <addon> <sub>
  not-required <step>
  note <step> <text...>
  info <text...>
  confirm <step>
  reminder <x> <y>
  next <step> | back <step>
  reset`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			st, err := configurator.OpenTrac360(args[0], a.deps())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			v := validator.New(a.registry)
			if done, err := navigateTrac360(out, v, st.Config(), args[1], args[2:]); done {
				return err
			}
			if err := applyTrac360(st, args[1], args[2:]); err != nil {
				return err
			}
			printBreakdown(out, model.LineTrac360, st.SessionID(), st.Breakdown(), st.Degraded())
			return nil
		})
	},
}

var function360Cmd = &cobra.Command{
	Use:   "function360 <session> <action> [args...]",
	Short: "Apply a FUNCTION360 selection and print the live price",
	Long: `Actions:
  show
  equipment <below_50hp|above_50hp> <electric_3rd|electric_3rd_4th>
  component <key> <on|off>
  not-required <step>
  note <step> <text...>
  notes <text...>
  confirm <step>
  reminder <x> <y>
  next <step> | back <step>
  reset`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			st, err := configurator.OpenFunction360(args[0], a.deps())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			v := validator.New(a.registry)
			if done, err := navigateFunction360(out, v, st.Config(), args[1], args[2:]); done {
				return err
			}
			if err := applyFunction360(st, args[1], args[2:]); err != nil {
				return err
			}
			printBreakdown(out, model.LineFunction360, st.SessionID(), st.Breakdown(), st.Degraded())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(trac360Cmd, function360Cmd)
}

func need(args []string, n int, action string) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s takes %d argument(s)", errUsage, action, n)
	}
	return nil
}

func parseReminder(args []string) (model.ReminderPosition, error) {
	if err := need(args, 2, "reminder"); err != nil {
		return model.ReminderPosition{}, err
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return model.ReminderPosition{}, fmt.Errorf("reminder x: %w", err)
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return model.ReminderPosition{}, fmt.Errorf("reminder y: %w", err)
	}
	return model.ReminderPosition{X: x, Y: y}, nil
}

func applyTrac360(st *configurator.Trac360Store, action string, args []string) error {
	switch action {
	case "show":
		return nil
	case "tractor":
		if err := need(args, 4, action); err != nil {
			return err
		}
		return st.SetTractorInfo(model.TractorInfo{Brand: args[0], Model: args[1], DriveType: args[2], ProtectionType: args[3]})
	case "valve-setup":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.SetValveSetup(args[0])
	case "operation":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.SetOperationType(args[0])
	case "circuits":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.SetCircuits(args[0])
	case "clear-circuits":
		return st.ClearCircuits()
	case "addon-add":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.AddAddon(args[0])
	case "addon-remove":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.RemoveAddon(args[0])
	case "sub-option":
		if err := need(args, 2, action); err != nil {
			return err
		}
		return st.SetAddonSubOption(args[0], args[1])
	case "not-required":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.MarkNotRequired(model.StepID(args[0]))
	case "note":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.SetStepNote(model.StepID(args[0]), strings.Join(args[1:], " "))
	case "info":
		return st.SetAdditionalInfo(strings.Join(args, " "))
	case "confirm":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.ConfirmStep(model.StepID(args[0]))
	case "reminder":
		pos, err := parseReminder(args)
		if err != nil {
			return err
		}
		st.SetReminderPosition(pos)
		return nil
	case "reset":
		st.Reset()
		return nil
	}
	return fmt.Errorf("%w: unknown trac360 action %q", errUsage, action)
}

func applyFunction360(st *configurator.Function360Store, action string, args []string) error {
	switch action {
	case "show":
		return nil
	case "equipment":
		if err := need(args, 2, action); err != nil {
			return err
		}
		return st.SetEquipment(model.Horsepower(args[0]), model.FunctionType(args[1]))
	case "component":
		if err := need(args, 2, action); err != nil {
			return err
		}
		on, err := parseSwitch(args[1])
		if err != nil {
			return err
		}
		return st.ToggleComponent(model.ComponentKey(args[0]), on)
	case "not-required":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.MarkNotRequired(model.StepID(args[0]))
	case "note":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.SetStepNote(model.StepID(args[0]), strings.Join(args[1:], " "))
	case "notes":
		return st.SetAdditionalNotes(strings.Join(args, " "))
	case "confirm":
		if err := need(args, 1, action); err != nil {
			return err
		}
		return st.ConfirmStep(model.StepID(args[0]))
	case "reminder":
		pos, err := parseReminder(args)
		if err != nil {
			return err
		}
		st.SetReminderPosition(pos)
		return nil
	case "reset":
		st.Reset()
		return nil
	}
	return fmt.Errorf("%w: unknown function360 action %q", errUsage, action)
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: want on or off, got %q", errUsage, s)
}

// navigateTrac360 handles next/back; done reports whether action was one.
func navigateTrac360(w io.Writer, v *validator.Validator, cfg *model.Trac360Config, action string, args []string) (bool, error) {
	if action != "next" && action != "back" {
		return false, nil
	}
	if err := need(args, 1, action); err != nil {
		return true, err
	}
	at := model.StepID(args[0])
	if action == "back" {
		prev, ok := router.Previous(model.LineTrac360, at, cfg)
		return true, printStep(w, model.LineTrac360, prev, ok)
	}
	if !v.CanProceedTrac360(at, cfg) {
		return true, fmt.Errorf("step %s is not complete", at)
	}
	next, ok := router.NextTrac360(at, cfg)
	return true, printStep(w, model.LineTrac360, next, ok)
}

func navigateFunction360(w io.Writer, v *validator.Validator, cfg *model.Function360Config, action string, args []string) (bool, error) {
	if action != "next" && action != "back" {
		return false, nil
	}
	if err := need(args, 1, action); err != nil {
		return true, err
	}
	at := model.StepID(args[0])
	if action == "back" {
		prev, ok := router.Previous(model.LineFunction360, at, nil)
		return true, printStep(w, model.LineFunction360, prev, ok)
	}
	if !v.CanProceedFunction360(at, cfg) {
		return true, fmt.Errorf("step %s is not complete", at)
	}
	next, ok := router.NextFunction360(at)
	return true, printStep(w, model.LineFunction360, next, ok)
}

func printStep(w io.Writer, line model.ProductLine, step model.StepID, ok bool) error {
	if !ok {
		return fmt.Errorf("no step to move to")
	}
	_, err := fmt.Fprintf(w, "%s\t%s\n", step, router.Path(line, step))
	return err
}

func printBreakdown(w io.Writer, line model.ProductLine, session string, b pricing.Breakdown, degraded bool) {
	fmt.Fprintf(w, "%s session %s\n", line, session)
	for _, l := range b.Lines {
		fmt.Fprintf(w, "  %-10s %-28s %10.2f\n", l.Kind, l.Name, l.Amount)
	}
	fmt.Fprintf(w, "  %-39s %10.2f\n", "total", b.Total)
	if degraded {
		fmt.Fprintln(w, "  warning: state backend unavailable, changes are held in memory only")
	}
}
