package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"amio/internal/bootstrap"
	managerdto "amio/internal/modules/manager/dto"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "amio",
		Short:         "Asset management interoperability host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newManagersCmd(&verbose))
	root.AddCommand(newResolveCmd(&verbose))
	root.AddCommand(newExistsCmd(&verbose))
	return root
}

func newManagersCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "managers",
		Short: "List discoverable asset managers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := bootstrap.New(*verbose)
			details, err := app.ManagerCLI.ListManagers(cmd.Context())
			if err != nil {
				return err
			}
			if len(details) == 0 {
				cmd.Println("no managers discovered")
				return nil
			}
			for _, detail := range details {
				cmd.Printf("%s\t%s\n", detail.Identifier, detail.DisplayName)
				for key, value := range detail.Info {
					cmd.Printf("  %s=%s\n", key, value)
				}
			}
			return nil
		},
	}
}

func newResolveCmd(verbose *bool) *cobra.Command {
	var traits []string
	var access string

	cmd := &cobra.Command{
		Use:   "resolve <entity-reference>",
		Short: "Resolve trait data for an entity via the default manager",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.New(*verbose)
			output, err := app.ManagerCLI.Resolve(cmd.Context(), managerdto.ResolveInput{
				Ref:    args[0],
				Traits: traits,
				Access: access,
			})
			if err != nil {
				return err
			}
			cmd.Println(output.Ref)
			for traitID, properties := range output.Traits {
				cmd.Printf("  [%s]\n", traitID)
				for key, value := range properties {
					cmd.Printf("    %s=%s\n", key, value)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&traits, "traits", nil, "trait set to resolve (comma separated)")
	cmd.Flags().StringVar(&access, "access", "read", "access mode: read|write|createRelated|managerDriven")
	return cmd
}

func newExistsCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <entity-reference>...",
		Short: "Check entity existence via the default manager",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := bootstrap.New(*verbose)
			results, err := app.ManagerCLI.Exists(cmd.Context(), args)
			if err != nil {
				return err
			}
			for _, result := range results {
				cmd.Printf("%s\t%t\n", result.Ref, result.Exists)
			}
			return nil
		},
	}
}
