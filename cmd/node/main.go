// Command node starts a corechain node.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nexusforge/corechain/builder"
	"github.com/nexusforge/corechain/config"
	"github.com/nexusforge/corechain/crypto/certgen"
	"github.com/nexusforge/corechain/events"
	"github.com/nexusforge/corechain/gossip"
	"github.com/nexusforge/corechain/kv"
	"github.com/nexusforge/corechain/mempool"
	"github.com/nexusforge/corechain/nexus"
	"github.com/nexusforge/corechain/rpc"
	"github.com/nexusforge/corechain/vm"
	"github.com/nexusforge/corechain/wallet"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/nexusforge/corechain/vm/modules/economy"
	_ "github.com/nexusforge/corechain/vm/modules/nftmod"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "node.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new node key and exit")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs into the given directory and exit (requires node ID from config)")
	flag.Parse()

	// Read keystore password from environment (not CLI flags — they leak via ps).
	password := os.Getenv("CORECHAIN_PASSWORD")
	if password == "" {
		log.Println("WARNING: CORECHAIN_PASSWORD not set — keystore will use an empty password")
	}

	// ---- generate key mode ----
	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated key. Owner address: %s\n", w.Address())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	// ---- generate certs mode ----
	if *genCerts != "" {
		cfgForCerts, err := loadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if err := certgen.GenerateAll(*genCerts, cfgForCerts.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfgForCerts.NodeID)
		return
	}

	// ---- load config ----
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- load owner key ----
	privKey, err := wallet.LoadKey(*keyPath, password)
	if err != nil {
		log.Fatalf("load key: %v", err)
	}
	owner := privKey.Public().Address()

	// ---- open DB ----
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}
	store, err := kv.OpenLevelStore(cfg.DataDir + "/chain")
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	// ---- gossip hub (chain-commit fan-out to subscribed plugins) ----
	hub := gossip.NewHub()
	reg := nexus.NewRegistry(hub)

	// ---- build the genesis chain ----
	c, err := config.BuildGenesisChain(cfg.Genesis, owner, store, vm.NewInterpVM(), vm.NewCallBuilder(), reg)
	if err != nil {
		log.Fatalf("genesis: %v", err)
	}
	reg.Add(c)
	log.Printf("Chain %q ready at address %s, height %d", cfg.Genesis.ChainName, c.Address(), c.BlockHeight())

	// ---- events ----
	emitter := events.NewEmitter()

	// ---- mempool + builder ----
	pool := mempool.New()
	bld := builder.New(c, pool)
	bld.SetEventSink(emitter)
	if cfg.MaxBlockTxs > 0 {
		bld.SetMaxBlockTxs(cfg.MaxBlockTxs)
	}

	// ---- TLS ----
	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}
	if tlsCfg != nil {
		log.Println("mTLS enabled for gossip")
	}

	// ---- gossip server ----
	gossipAddr := fmt.Sprintf(":%d", cfg.GossipPort)
	gossipMux := http.NewServeMux()
	gossipMux.HandleFunc("/ws", hub.ServeWS)
	gossipSrv := &http.Server{Addr: gossipAddr, Handler: gossipMux, TLSConfig: tlsCfg}
	go func() {
		var err error
		if tlsCfg != nil {
			err = gossipSrv.ListenAndServeTLS("", "")
		} else {
			err = gossipSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Printf("[gossip] server error: %v", err)
		}
	}()
	defer gossipSrv.Close()
	log.Printf("Gossip listening on %s", gossipAddr)

	// ---- RPC ----
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	rpcHandler := rpc.NewHandler(c, pool)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		log.Fatalf("rpc start: %v", err)
	}
	defer rpcServer.Stop()
	log.Printf("RPC listening on %s", rpcAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("RPC Bearer token authentication enabled")
	}

	// ---- block production loop ----
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		bld.Run(2*time.Second, done)
	}()
	log.Printf("Block production running (owner: %s)", owner)

	// ---- graceful shutdown ----
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	// 1. Stop block production first (no new blocks written)
	close(done)
	wg.Wait()

	// 2. Deferred calls run in LIFO: rpcServer.Stop → gossipSrv.Close → store.Close
	log.Println("Shutdown complete.")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
