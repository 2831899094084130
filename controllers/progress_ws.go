// controllers/progress_ws.go
package controller

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/hannahgrace-creator/mail-guard-pilot/models"
	"github.com/hannahgrace-creator/mail-guard-pilot/utils"
)

// HandleProgressWS streams a test's derived verification progress until it
// reaches a terminal state or the client goes away.
func (tc *TestController) HandleProgressWS(c *websocket.Conn) {
	defer c.Close()

	testID := utils.ParseUint(c.Params("id"))
	if testID == 0 {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var test models.Test
		if err := tc.DB.First(&test, testID).Error; err != nil {
			log.Printf("Progress stream: test %d not found: %v", testID, err)
			return
		}

		progress, err := tc.Orchestrator.Progress(testID)
		if err != nil {
			log.Printf("Progress stream: failed to compute progress: %v", err)
			return
		}

		update := struct {
			Status  string `json:"status"`
			Percent int    `json:"percent"`
		}{
			Status:  test.Status,
			Percent: int(progress * 100),
		}

		if err := c.WriteJSON(update); err != nil {
			return
		}

		if test.Status == "completed" || test.Status == "failed" {
			return
		}
	}
}
