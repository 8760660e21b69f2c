package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rickgao/marketdash/internal/connection"
	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/protocol"
	"github.com/rickgao/marketdash/internal/stats"
)

// ErrUnknownCommand is returned by Submit for an unrecognized slash command.
var ErrUnknownCommand = errors.New("unknown command")

// commandHelp lists the slash commands in help order.
var commandHelp = []struct {
	name string
	help string
}{
	{"/help", "Show this help"},
	{"/clear", "Clear messages"},
	{"/stats", "Show statistics"},
	{"/ping", "Test latency"},
	{"/symbols", "List available symbols"},
	{"/metrics", "Get performance metrics"},
}

// command runs a slash command. Names are case-insensitive.
func (c *Client) command(text string) error {
	switch strings.ToLower(text) {
	case "/help":
		return c.cmdHelp()
	case "/clear":
		return c.cmdClear()
	case "/stats":
		return c.cmdStats()
	case "/ping":
		return c.cmdPing()
	case "/symbols":
		return c.cmdSymbols()
	case "/metrics":
		return c.cmdMetrics()
	}
	c.sink.Notify("Unknown command: "+text, model.SeverityError)
	c.sink.Notify("Type /help for available commands", model.SeverityInfo)
	return fmt.Errorf("%w: %s", ErrUnknownCommand, text)
}

func (c *Client) cmdHelp() error {
	c.sink.Notify("Available commands:", model.SeverityInfo)
	for _, cmd := range commandHelp {
		c.sink.Notify(cmd.name+" - "+cmd.help, model.SeverityInfo)
	}
	return nil
}

func (c *Client) cmdClear() error {
	c.messages.Clear()
	c.sink.Notify("Messages cleared", model.SeveritySuccess)
	return nil
}

func (c *Client) cmdStats() error {
	connected := "No"
	if c.manager.Connected() {
		connected = "Yes"
	}
	uptime := stats.FormatDuration(0)
	if sess, ok := c.manager.Session(); ok {
		uptime = stats.FormatDuration(c.runner.Now().Sub(sess.StartedAt))
	}
	snap, _ := c.pipeline.Metrics()

	c.sink.Notify(fmt.Sprintf("Total Messages: %d", c.pipeline.Total()), model.SeverityInfo)
	c.sink.Notify("Connected: "+connected, model.SeverityInfo)
	c.sink.Notify("Selected Symbol: "+c.store.Selected(), model.SeverityInfo)
	c.sink.Notify("Uptime: "+uptime, model.SeverityInfo)
	c.sink.Notify(fmt.Sprintf("Active Connections: %d", snap.Connections), model.SeverityInfo)
	return nil
}

func (c *Client) cmdPing() error {
	if !c.manager.Connected() {
		c.sink.Notify("Not connected", model.SeverityError)
		return connection.ErrNotConnected
	}
	if err := c.manager.SendUser(protocol.Ping{}); err != nil {
		return err
	}
	c.sink.Notify("Ping sent (pong response not implemented)", model.SeverityInfo)
	return nil
}

func (c *Client) cmdSymbols() error {
	c.sink.Notify("Available symbols: "+strings.Join(c.store.Symbols(), ", "), model.SeverityInfo)
	return nil
}

func (c *Client) cmdMetrics() error {
	return c.manager.RequestMetrics()
}
