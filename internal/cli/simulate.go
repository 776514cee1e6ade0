package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"dispute-analytics/internal/app"
)

var (
	simulateTenant   string
	simulateDisputes int
	simulateOrders   int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "用合成的争议/订单数量模拟一次健康度告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateOrders <= 0 {
			return errors.New("--orders 必须大于 0")
		}

		a := getApp()
		a.Out = cmd.OutOrStdout()
		return a.SimulateAlert(cmd.Context(), app.SimulateOptions{
			Tenant:   simulateTenant,
			Disputes: simulateDisputes,
			Orders:   simulateOrders,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateTenant, "tenant", "", "告警中使用的租户 id")
	simulateCmd.Flags().IntVar(&simulateDisputes, "disputes", 0, "全量争议数")
	simulateCmd.Flags().IntVar(&simulateOrders, "orders", 0, "全量订单数")
}
