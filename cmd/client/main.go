// Command client is a headless player. It joins a room and reads commands
// from stdin: ready, unready, jump, rematch and quit.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/client"
	"github.com/ArenasTI/Flappy-Bird/internal/proto"
	"github.com/ArenasTI/Flappy-Bird/internal/telemetry"
)

func main() {
	var (
		name string
		host string
		port int
	)
	flag.StringVar(&name, "name", "", "player name")
	flag.StringVar(&host, "host", "127.0.0.1", "server host")
	flag.IntVar(&port, "port", proto.DefaultPort, "server UDP port")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.Ltime|log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, name, host, port, os.Stdin, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, name, host string, port int, in io.Reader, logger *log.Logger) error {
	session, err := client.Join(ctx, client.Options{
		Name:     name,
		Host:     host,
		Port:     port,
		Listener: &console{logger: logger},
		Logger:   telemetry.WrapLogger(logger),
	})
	if err != nil {
		return err
	}
	defer session.Close()
	logger.Printf("joining %s", session)

	commands := make(chan string)
	go func() {
		defer close(commands)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			commands <- strings.ToLower(strings.TrimSpace(scanner.Text()))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return nil
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			if err := apply(session, cmd); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				logger.Printf("%v", err)
			}
		}
	}
}

var errQuit = errors.New("quit")

func apply(session *client.Session, cmd string) error {
	switch cmd {
	case "":
		return nil
	case "ready", "r":
		return session.SetReady(true)
	case "unready", "u":
		return session.SetReady(false)
	case "jump", "j":
		return session.Jump()
	case "rematch", "m":
		return session.RequestRematch()
	case "quit", "q", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (ready, unready, jump, rematch, quit)", cmd)
	}
}

// console prints every room event.
type console struct {
	logger *log.Logger
}

func (c *console) Connected(id int) { c.logger.Printf("connected as P%d", id) }

func (c *console) RoomUpdate(u client.RoomUpdate) {
	players := make([]string, 0, len(u.Players))
	for _, p := range u.Players {
		players = append(players, client.FormatPlayer(p))
	}
	c.logger.Printf("room %s (last winner %d): %s", u.State, u.LastWinnerID, strings.Join(players, ", "))
}

func (c *console) StartGame(x, y float64, delay time.Duration) {
	c.logger.Printf("match starts in %s at (%.2f, %.2f)", delay, x, y)
}

func (c *console) RemoteJump(id int)           { c.logger.Printf("P%d jumped", id) }
func (c *console) SpawnPipe(gapCenter float64) { c.logger.Printf("pipe with gap at %.2f", gapCenter) }
func (c *console) Eliminated(id int)           { c.logger.Printf("P%d eliminated", id) }
func (c *console) PlayerLeft(id int)           { c.logger.Printf("P%d left", id) }
func (c *console) ServerClosed(reason string)  { c.logger.Printf("closed: %s", reason) }
func (c *console) Error(message string)        { c.logger.Printf("error: %s", message) }

func (c *console) GameFinished(winner int) {
	if winner == 0 {
		c.logger.Printf("match finished in a draw")
		return
	}
	c.logger.Printf("match finished, P%d wins", winner)
}
