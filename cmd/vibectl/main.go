// Package main provides the control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	apiconnect "github.com/osa030/vibebox/internal/api/connect"
	"github.com/osa030/vibebox/internal/app/binding"
)

var (
	app    = kingpin.New("vibectl", "vibebox control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8090").String()
	token  = app.Flag("token", "Device token (or set VIBEBOX_API_TOKEN env)").Envar("VIBEBOX_API_TOKEN").String()
	asJSON = app.Flag("json", "Print raw JSON").Bool()

	statusCmd = app.Command("status", "Show the device snapshot")
	watchCmd  = app.Command("watch", "Stream snapshots and playback events")

	// action commands
	actionCmds = map[string]binding.Action{
		app.Command("toggle", "Prime when stopped, otherwise stop").FullCommand(): binding.ActionToggle,
		app.Command("start", "Start playback immediately").FullCommand():          binding.ActionStart,
		app.Command("prime", "Arm playback for the next beat").FullCommand():      binding.ActionPrime,
		app.Command("stop", "Stop playback").FullCommand():                        binding.ActionStop,
		app.Command("sync", "Record a beat now").FullCommand():                    binding.ActionSync,
		app.Command("next", "Select the next chart").FullCommand():                binding.ActionNextChart,
		app.Command("prev", "Select the previous chart").FullCommand():            binding.ActionPrevChart,
	}
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewDeviceServiceClient(http.DefaultClient, *server)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = status(ctx, client)
	case watchCmd.FullCommand():
		err = watch(ctx, client)
	default:
		action, ok := actionCmds[command]
		if !ok {
			err = fmt.Errorf("unknown command: %s", command)
			break
		}
		err = send(ctx, client, action)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func status(ctx context.Context, client *apiconnect.DeviceServiceClient) error {
	resp, err := client.GetSnapshot(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(resp.Msg)
	}

	s := resp.Msg.AsMap()
	fmt.Println("\n=== DEVICE STATUS ===")
	fmt.Printf("Playback: %v\n", s["playback"])
	fmt.Printf("Tick: %v\n", s["tick"])
	fmt.Printf("Time: now=%v beat=%v sync_pending=%v\n", s["time_now"], s["time_beat"], s["sync_pending"])

	if buttons, ok := s["buttons"].([]any); ok {
		fmt.Println("\nButtons:")
		for i, b := range buttons {
			bs, _ := b.(map[string]any)
			fmt.Printf("  %d: pressed=%v held=%v duration=%vms\n", i, bs["is_pressed"], bs["held"], bs["pressed_duration"])
		}
	}
	fmt.Printf("\nArrows: %v\n", s["arrows"])

	if c, ok := s["chart"].(map[string]any); ok {
		if count, _ := c["count"].(float64); count > 0 {
			fmt.Printf("\nChart %v/%v: %v (%v/%v events, %vms)\n",
				c["index"].(float64)+1, count, c["title"], c["applied"], c["total"], c["position"])
		} else {
			fmt.Println("\nNo charts loaded")
		}
	}
	fmt.Println()
	return nil
}

func send(ctx context.Context, client *apiconnect.DeviceServiceClient, action binding.Action) error {
	if *token == "" {
		return fmt.Errorf("device token is required (use --token or VIBEBOX_API_TOKEN env)")
	}
	req := connect.NewRequest(apiconnect.NewCommand(action))
	req.Header().Set(apiconnect.TokenHeader, *token)
	if _, err := client.SendCommand(ctx, req); err != nil {
		return err
	}
	fmt.Printf("Queued %s\n", action)
	return nil
}

func watch(ctx context.Context, client *apiconnect.DeviceServiceClient) error {
	stream, err := client.WatchSnapshots(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		msg := stream.Msg()
		if *asJSON {
			if err := printJSON(msg); err != nil {
				return err
			}
			continue
		}

		n := msg.AsMap()
		snap, _ := n["snapshot"].(map[string]any)
		if e, ok := n["event"].(map[string]any); ok {
			fmt.Printf("#%v %v -> %v (%v) at %v\n", n["sequence_no"], e["from"], e["to"], e["trigger"], e["at"])
			continue
		}
		fmt.Printf("#%v tick=%v %v arrows=%v\n", n["sequence_no"], snap["tick"], snap["playback"], snap["arrows"])
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printJSON(msg *structpb.Struct) error {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
