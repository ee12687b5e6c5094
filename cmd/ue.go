package cmd

import (
	"github.com/Alonza0314/free-ran-l2/logger"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/ue"
	"github.com/Alonza0314/free-ran-l2/util"
	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var ueCmd = &cobra.Command{
	Use:     "ue",
	Short:   "This is a UE layer 2 simulator.",
	Long:    "This is a UE MAC stack running random access, HARQ and handover against a loopback cell.",
	Example: "free-ran-l2 ue -c config/ue.yaml",
	Run:     ueFunc,
}

func init() {
	ueCmd.Flags().StringP("config", "c", "config/ue.yaml", "config file path")
	if err := ueCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(ueCmd)
}

func ueFunc(cmd *cobra.Command, args []string) {
	ueConfigFilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		panic(err)
	}

	ueConfig := model.UeConfig{}
	if err := util.LoadFromYaml(ueConfigFilePath, &ueConfig); err != nil {
		panic(err)
	}

	ueLogger := logger.NewUeLogger(loggergoUtil.LogLevelString(ueConfig.Logger.Level), ueConfig.Logger.FilePath, ueConfig.Logger.DebugMode)

	u, err := ue.NewUe(&ueConfig, &ueLogger)
	if err != nil {
		ueLogger.CfgLog.Errorf("Error creating UE: %v", err)
		return
	}

	lifecycle := util.NewLifecycle(cmd.Context())
	if err := u.Start(lifecycle.Context()); err != nil {
		lifecycle.Shutdown()
		u.Stop()
		return
	}

	group, ctx := errgroup.WithContext(lifecycle.Context())
	group.Go(lifecycle.WaitSignal)
	group.Go(func() error {
		<-ctx.Done()
		u.Stop()
		return nil
	})
	if err := group.Wait(); err != nil {
		ueLogger.UeLog.Errorf("UE exited: %v", err)
	}
}
