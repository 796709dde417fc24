package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"

	"github.com/da33dut/yourtime/internal/action"
	"github.com/da33dut/yourtime/internal/config"
	"github.com/da33dut/yourtime/internal/controller"
	"github.com/da33dut/yourtime/internal/identity"
	"github.com/da33dut/yourtime/internal/ipc"
	"github.com/da33dut/yourtime/internal/notify"
	"github.com/da33dut/yourtime/internal/watchdog"
)

func main() {
	settingsPath := ""
	if len(os.Args) > 1 {
		settingsPath = os.Args[1]
	}
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		log.Fatal("Failed to load settings:", err)
	}
	if level, err := log.ParseLevel(settings.LogLevel); err == nil {
		log.SetLevel(level)
	}

	store := config.NewStore(settings.ConfigPath)
	log.Println("Using config document at:", store.Path())

	executor, err := action.NewLogindExecutor()
	if err != nil {
		log.Println("Failed to connect to logind, enforcement actions are disabled:", err)
	}
	notifier, err := notify.New()
	if err != nil {
		log.Println("Failed to connect to session bus, warnings are disabled:", err)
	}

	onTrigger := func(reason watchdog.TriggerReason, act string) {
		if notifier != nil {
			msg := "Usage time is up"
			if reason == watchdog.ReasonBlocked {
				msg = "Access is blocked at this time"
			}
			if err := notifier.Announce(msg); err != nil {
				log.Println("Failed to announce trigger:", err)
			}
		}
		if executor == nil {
			return
		}
		// fire-and-forget: a stalled logind call must not stall the loop
		go func() {
			if err := executor.Execute(action.Kind(act), identity.Current()); err != nil {
				log.Println("Enforcement action failed:", err)
			}
		}()
	}
	onWarn := func(minutes int64) {
		if notifier == nil {
			return
		}
		if err := notifier.Warn(minutes); err != nil {
			log.Println("Failed to send warning:", err)
		}
	}

	ctrl := controller.New(store, onTrigger, onWarn)
	if _, err := ctrl.Load(); err != nil {
		log.Println("Config document error, continuing with defaults:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Opening session D-Bus service...")
		if err := serveManager(ctx, ctrl); err != nil {
			// exclusive ownership of enforcement was never established, or
			// was lost; a second instance must not keep ticking the ledger
			log.Error("ipc service failed, shutting down: ", err)
			cancel()
		}
	}()

	ctrl.Start()
	<-ctx.Done()
	ctrl.Stop()
	wg.Wait()
	fmt.Println("Shutdown complete")
}

func serveManager(ctx context.Context, ctrl *controller.Controller) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(ipc.ServiceName, dbus.NameFlagDoNotQueue)
	if err := ipc.OwnershipError(reply, err); err != nil {
		return err
	}

	m := &ipc.Manager{Ctrl: ctrl}
	if err := conn.Export(m, dbus.ObjectPath(ipc.ObjectPath), ipc.InterfaceName); err != nil {
		return fmt.Errorf("failed to export interface: %w", err)
	}

	<-ctx.Done()
	return nil
}
