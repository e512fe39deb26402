// Command pongbot is an automated Pong client. It joins a game over the
// WebSocket protocol, sizes the court, optionally starts the match, and keeps
// its paddle centered on the ball until the match ends.
//
//	pongbot --game lobby-1 --start
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/pong-arena/logging"
	"go.uber.org/zap"
)

func main() {
	cmd := &cli.Command{
		Name:  "pongbot",
		Usage: "Play one side of a Pong match",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080", Usage: "Game server WebSocket base URL"},
			&cli.StringFlag{Name: "game", Required: true, Usage: "Game ID to join"},
			&cli.StringFlag{Name: "token", Usage: "Bearer token", Sources: cli.EnvVars("PONGBOT_TOKEN")},
			&cli.BoolFlag{Name: "start", Usage: "Send START_GAME after joining"},
			&cli.FloatFlag{Name: "width", Value: 800, Usage: "Court width sent with DIMENSIONS"},
			&cli.FloatFlag{Name: "height", Value: 600, Usage: "Court height sent with DIMENSIONS"},
			&cli.FloatFlag{Name: "deadband", Value: 10, Usage: "Distance from paddle center the ball may drift before moving"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "pongbot: %v\n", err)
		os.Exit(1)
	}
}

// gameURL joins the server base URL and the game path
func gameURL(base, gameID string) string {
	return strings.TrimSuffix(base, "/") + "/sessions/" + url.PathEscape(gameID)
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := logging.New(cmd.String("log-level"), "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := gameURL(cmd.String("url"), cmd.String("game"))
	logger.Info("connecting", zap.String("url", target))

	conn, err := Dial(ctx, target, cmd.String("token"))
	if err != nil {
		return err
	}
	defer conn.Close()

	bot := NewBot(conn, Options{
		Width:    cmd.Float("width"),
		Height:   cmd.Float("height"),
		Start:    cmd.Bool("start"),
		Deadband: cmd.Float("deadband"),
		Logger:   logger,
	})

	over, err := bot.Play(ctx)
	if err != nil {
		return err
	}

	logger.Info("game over",
		zap.String("side", bot.Side()),
		zap.String("reason", over.Reason),
		zap.String("winner", over.Winner),
		zap.Int("score_left", over.Score.Left),
		zap.Int("score_right", over.Score.Right),
		zap.Int("moves", bot.Moves()))
	return nil
}
