package cmd

import (
	"github.com/Alonza0314/free-ran-l2/enb"
	"github.com/Alonza0314/free-ran-l2/logger"
	"github.com/Alonza0314/free-ran-l2/model"
	"github.com/Alonza0314/free-ran-l2/util"
	loggergoUtil "github.com/Alonza0314/logger-go/v2/util"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var enbCmd = &cobra.Command{
	Use:     "enb",
	Short:   "This is an eNB RRC mobility simulator.",
	Long:    "This is an eNB running the RRC handover state machine per UE, connected to the core over NGAP.",
	Example: "free-ran-l2 enb -c config/enb.yaml",
	Run:     enbFunc,
}

func init() {
	enbCmd.Flags().StringP("config", "c", "config/enb.yaml", "config file path")
	if err := enbCmd.MarkFlagRequired("config"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(enbCmd)
}

func enbFunc(cmd *cobra.Command, args []string) {
	enbConfigFilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		panic(err)
	}

	enbConfig := model.EnbConfig{}
	if err := util.LoadFromYaml(enbConfigFilePath, &enbConfig); err != nil {
		panic(err)
	}

	enbLogger := logger.NewEnbLogger(loggergoUtil.LogLevelString(enbConfig.Logger.Level), enbConfig.Logger.FilePath, enbConfig.Logger.DebugMode)

	e, err := enb.NewEnb(&enbConfig, &enbLogger)
	if err != nil {
		enbLogger.CfgLog.Errorf("Error creating eNB: %v", err)
		return
	}

	lifecycle := util.NewLifecycle(cmd.Context())
	if err := e.Start(lifecycle.Context()); err != nil {
		lifecycle.Shutdown()
		e.Stop()
		return
	}

	group, ctx := errgroup.WithContext(lifecycle.Context())
	group.Go(lifecycle.WaitSignal)
	group.Go(func() error {
		<-ctx.Done()
		e.Stop()
		return nil
	})
	if err := group.Wait(); err != nil {
		enbLogger.EnbLog.Errorf("eNB exited: %v", err)
	}
}
