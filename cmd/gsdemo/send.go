package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/relaysync/gamesync/identity"
	"github.com/relaysync/gamesync/internal/udptransport"
	"github.com/relaysync/gamesync/manager"
	"github.com/relaysync/gamesync/transceiver"
	"github.com/relaysync/gamesync/wire"
)

func sendCmd() *cobra.Command {
	var (
		listenAddr string
		peerAddr   string
		objName    string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one Head1 update to a peer and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(listenAddr, peerAddr, objName)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:0", "local UDP address to send from")
	cmd.Flags().StringVar(&peerAddr, "peer", "", "UDP address to send to")
	cmd.Flags().StringVar(&objName, "object", "demo", "identity string, packed into an 8-byte object id")
	cmd.MarkFlagRequired("peer")
	return cmd
}

func runSend(listenAddr, peerAddr, objName string) error {
	udp, err := udptransport.Listen(listenAddr, 1)
	if err != nil {
		return err
	}
	defer udp.Close()

	if err := udp.AddPeer(2, peerAddr); err != nil {
		return err
	}

	mgr := manager.New(udp, false)
	clock := clockwork.NewRealClock()
	tr := transceiver.New(transceiver.Config{
		Mode:      transceiver.SendOnly,
		Algorithm: transceiver.AlgorithmTimestamp,
		ExpiryMs:  10000,
		Clock:     clock,
	})

	id := identity.FromString(objName)
	if err := mgr.RegisterID(id, tr); err != nil {
		return err
	}

	obj := &wire.Head1{
		ObjID: id,
		Time:  wire.DateTimeMs(clock.Now().UnixMilli()),
		Loc:   wire.Loc2{},
		Rot:   wire.Rot2{},
	}
	if err := tr.SetLocal(transceiver.AuthoredObject{Object: obj, Author: 1}); err != nil {
		return err
	}

	fmt.Printf("sent Head1 for %q (id %d) to %s\n", objName, id, peerAddr)
	return nil
}
