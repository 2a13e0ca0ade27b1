// Command console is an interactive operator console for a single
// concentrated-liquidity pool: initialize the price, mint and burn
// liquidity, collect credits, inspect ticks and positions, and save or
// restore snapshots from a JSON file or Postgres.
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/poolstate/clpool-go/calculator/tickmath"
	"github.com/poolstate/clpool-go/pool"
	"github.com/poolstate/clpool-go/snapshot"
	"github.com/poolstate/clpool-go/transfer"
)

// --- VISUAL CONSTANTS ---
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[37m"
)

// header prints a styled section header
func header(title string) {
	fmt.Println("\n" + Bold + Cyan + ":: " + title + " ::" + Reset)
}

// snapshotStore abstracts the file and Postgres backends behind one pair of
// operations keyed by the configured label.
type snapshotStore interface {
	Save(ctx context.Context, st *snapshot.State) error
	Load(ctx context.Context) (*snapshot.State, bool, error)
}

type fileBacked struct{ store *snapshot.FileStore }

func (f fileBacked) Save(ctx context.Context, st *snapshot.State) error { return f.store.Save(ctx, st) }
func (f fileBacked) Load(ctx context.Context) (*snapshot.State, bool, error) {
	return f.store.Load(ctx)
}

type pgBacked struct {
	store *snapshot.PGStore
	label string
}

func (p pgBacked) Save(ctx context.Context, st *snapshot.State) error {
	return p.store.Save(ctx, p.label, st)
}
func (p pgBacked) Load(ctx context.Context) (*snapshot.State, bool, error) {
	return p.store.Load(ctx, p.label)
}

// zapLogger adapts a zap sugared logger to the pool's logging interface.
type zapLogger struct{ s *zap.SugaredLogger }

func (l zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

// console holds everything the command handlers operate on.
type console struct {
	pool     *pool.Pool
	poolAddr common.Address
	ledger   *transfer.Ledger
	store    snapshotStore
	log      *zap.SugaredLogger
}

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Red+err.Error()+Reset)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Interactive console for a concentrated-liquidity pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}

	bindFlags(cmd.Flags())

	cobra.OnInitialize(func() {
		if path := viper.GetString("config"); path != "" {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintln(os.Stderr, Red+"config: "+err.Error()+Reset)
				os.Exit(1)
			}
		}
		viper.SetEnvPrefix("CLPOOL")
		viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		viper.AutomaticEnv()
	})

	return cmd
}

func bindFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a config file (yaml)")
	flags.String("token0", "0x00000000000000000000000000000000000000b0", "token0 address")
	flags.String("token1", "0x00000000000000000000000000000000000000b1", "token1 address")
	flags.Uint64("fee", 3000, "fee tier in hundredths of a bip")
	flags.Int64("tick-spacing", 60, "tick spacing")
	flags.String("pool-address", "0x0000000000000000000000000000000000000001", "address the pool holds balances under")
	flags.String("snapshot-file", "pool.snapshot.json", "snapshot file path")
	flags.String("postgres-dsn", "", "Postgres DSN; when set, snapshots go to Postgres instead of the file")
	flags.String("snapshot-label", "default", "row label for Postgres snapshots")
	flags.String("log-file", "console.log", "structured log output file")
	viper.BindPFlags(flags)
}

func run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = []string{viper.GetString("log-file")}
	zlog, err := logCfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zlog.Sync()
	sugar := zlog.Sugar()

	poolAddr := common.HexToAddress(viper.GetString("pool-address"))
	ledger := transfer.NewLedger(poolAddr)

	p, err := pool.New(&pool.Config{
		Token0:      common.HexToAddress(viper.GetString("token0")),
		Token1:      common.HexToAddress(viper.GetString("token1")),
		Fee:         viper.GetUint64("fee"),
		TickSpacing: viper.GetInt64("tick-spacing"),
		Transfer:    ledger,
		Logger:      zapLogger{s: sugar.With("component", "pool")},
		Registry:    prometheus.DefaultRegisterer,
	})
	if err != nil {
		return fmt.Errorf("build pool: %w", err)
	}

	var store snapshotStore
	if dsn := viper.GetString("postgres-dsn"); dsn != "" {
		pg, err := snapshot.NewPGStore(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure snapshot schema: %w", err)
		}
		store = pgBacked{store: pg, label: viper.GetString("snapshot-label")}
	} else {
		store = fileBacked{store: &snapshot.FileStore{Path: viper.GetString("snapshot-file")}}
	}

	c := &console{pool: p, poolAddr: poolAddr, ledger: ledger, store: store, log: sugar}

	fmt.Println(Green + "Starting pool console..." + Reset)
	fmt.Printf("Logs are being written to %q\n", viper.GetString("log-file"))
	c.loop(ctx)
	return nil
}

func (c *console) loop(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)

	for {
		if ctx.Err() != nil {
			fmt.Println("\n" + Yellow + "Shutting down..." + Reset)
			return
		}

		printMenu()

		fmt.Print(Bold + "Enter selection: " + Reset)
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\n" + Yellow + "Shutting down..." + Reset)
			return
		}
		input = strings.TrimSpace(input)

		c.handleCommand(ctx, input, reader)

		fmt.Println("\n" + Gray + "[Press Enter to continue]" + Reset)
		reader.ReadString('\n')
	}
}

func printMenu() {
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(Bold + "POOL CONSOLE" + Reset + Gray + " | v0.1.0" + Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %si.%s Initialize Price\n", Cyan, Reset)
	fmt.Printf(" %s1.%s Pool Status\n", Cyan, Reset)
	fmt.Printf(" %s2.%s Mint Liquidity\n", Cyan, Reset)
	fmt.Printf(" %s3.%s Burn Liquidity\n", Cyan, Reset)
	fmt.Printf(" %s4.%s Collect Credits\n", Cyan, Reset)
	fmt.Printf(" %s5.%s Tick Table\n", Cyan, Reset)
	fmt.Printf(" %s6.%s Position Table\n", Cyan, Reset)
	fmt.Printf(" %s7.%s Fund Account\n", Cyan, Reset)
	fmt.Printf(" %s8.%s Save Snapshot\n", Cyan, Reset)
	fmt.Printf(" %s9.%s Load Snapshot\n", Cyan, Reset)
	fmt.Println(Gray + "-----------------------------------" + Reset)
	fmt.Printf(" %sq.%s Quit\n", Red, Reset)
	fmt.Println("")
}

func (c *console) handleCommand(ctx context.Context, input string, reader *bufio.Reader) {
	switch input {
	case "i":
		c.initialize(reader)
	case "1":
		c.printStatus()
	case "2":
		c.mint(ctx, reader)
	case "3":
		c.burn(ctx, reader)
	case "4":
		c.collect(ctx, reader)
	case "5":
		c.printTicks()
	case "6":
		c.printPositions()
	case "7":
		c.fund(reader)
	case "8":
		c.save(ctx)
	case "9":
		c.load(ctx)
	case "q":
		fmt.Println(Yellow + "Exiting..." + Reset)
		os.Exit(0)
	default:
		fmt.Println(Red + "Unknown command." + Reset)
	}
}

// --- COMMAND HANDLERS ---

func (c *console) initialize(reader *bufio.Reader) {
	fmt.Print("\n" + Bold + "[Initialize] Enter starting tick: " + Reset)
	tick, ok := readInt(reader)
	if !ok {
		return
	}

	price := new(big.Int)
	if err := tickmath.GetSqrtRatioAtTick(price, tick); err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	if err := c.pool.Initialize(price); err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	fmt.Printf(Green+"Initialized at tick %d (sqrtPriceX96 %s).%s\n", tick, price.String(), Reset)
}

func (c *console) printStatus() {
	slot0 := c.pool.Slot0()

	header("POOL STATUS")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintf(w, "Token0:\t%s\t\n", c.pool.Token0())
	fmt.Fprintf(w, "Token1:\t%s\t\n", c.pool.Token1())
	fmt.Fprintf(w, "Fee:\t%d\t\n", c.pool.Fee())
	fmt.Fprintf(w, "Tick Spacing:\t%d\t\n", c.pool.TickSpacing())
	fmt.Fprintf(w, "Ceiling/Tick:\t%s\t\n", c.pool.MaxLiquidityPerTick().String())
	if slot0.Unlocked {
		fmt.Fprintf(w, "SqrtPriceX96:\t%s\t\n", slot0.SqrtPriceX96.String())
		fmt.Fprintf(w, "Current Tick:\t%d\t\n", slot0.Tick)
		fmt.Fprintf(w, "In-Range Liquidity:\t%s\t\n", c.pool.Liquidity().String())
	} else {
		fmt.Fprintf(w, "State:\t%suninitialized%s\t\n", Yellow, Reset)
	}
	w.Flush()

	fmt.Printf("\n%sPool Balances:%s token0=%s token1=%s\n", Bold, Reset,
		c.ledger.BalanceOf(c.pool.Token0(), c.poolAddr).String(),
		c.ledger.BalanceOf(c.pool.Token1(), c.poolAddr).String())
}

func (c *console) mint(ctx context.Context, reader *bufio.Reader) {
	owner, lower, upper, ok := readPositionArgs(reader)
	if !ok {
		return
	}
	fmt.Print(Bold + "Liquidity amount: " + Reset)
	amount, ok := readBig(reader)
	if !ok {
		return
	}

	amount0, amount1, err := c.pool.Mint(ctx, owner, lower, upper, amount)
	if err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	fmt.Printf(Green+"Minted. Pulled token0=%s token1=%s%s\n", amount0.String(), amount1.String(), Reset)
}

func (c *console) burn(ctx context.Context, reader *bufio.Reader) {
	owner, lower, upper, ok := readPositionArgs(reader)
	if !ok {
		return
	}
	fmt.Print(Bold + "Liquidity amount: " + Reset)
	amount, ok := readBig(reader)
	if !ok {
		return
	}

	owed0, owed1, err := c.pool.Burn(ctx, owner, lower, upper, amount)
	if err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	fmt.Printf(Green+"Burned. Credited token0=%s token1=%s (collect to withdraw)%s\n",
		owed0.String(), owed1.String(), Reset)
}

func (c *console) collect(ctx context.Context, reader *bufio.Reader) {
	owner, lower, upper, ok := readPositionArgs(reader)
	if !ok {
		return
	}

	amount0, amount1, err := c.pool.Collect(ctx, owner, lower, upper, nil, nil)
	if err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	fmt.Printf(Green+"Collected token0=%s token1=%s%s\n", amount0.String(), amount1.String(), Reset)
}

func (c *console) printTicks() {
	st := c.pool.Snapshot()
	if len(st.Ticks) == 0 {
		fmt.Println("\n" + Yellow + "[INFO] No initialized ticks." + Reset)
		return
	}

	header("TICK TABLE")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "TICK\tGROSS\tNET\t")
	fmt.Fprintln(w, "----\t-----\t---\t")
	for _, t := range st.Ticks {
		fmt.Fprintf(w, "%d\t%s\t%s\t\n", t.Index, t.LiquidityGross.String(), t.LiquidityNet.String())
	}
	w.Flush()
}

func (c *console) printPositions() {
	st := c.pool.Snapshot()
	if len(st.Positions) == 0 {
		fmt.Println("\n" + Yellow + "[INFO] No positions." + Reset)
		return
	}

	header("POSITION TABLE")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	fmt.Fprintln(w, "OWNER\tRANGE\tLIQUIDITY\tOWED0\tOWED1\t")
	fmt.Fprintln(w, "-----\t-----\t---------\t-----\t-----\t")
	for _, pos := range st.Positions {
		fmt.Fprintf(w, "%s\t[%d, %d)\t%s\t%s\t%s\t\n",
			pos.Owner, pos.TickLower, pos.TickUpper,
			pos.Liquidity.String(), pos.TokensOwed0.String(), pos.TokensOwed1.String())
	}
	w.Flush()
}

func (c *console) fund(reader *bufio.Reader) {
	fmt.Print("\n" + Bold + "[Fund] Account address: " + Reset)
	holder, ok := readAddress(reader)
	if !ok {
		return
	}
	fmt.Print(Bold + "Amount of each token: " + Reset)
	amount, ok := readBig(reader)
	if !ok {
		return
	}

	c.ledger.Credit(c.pool.Token0(), holder, amount)
	c.ledger.Credit(c.pool.Token1(), holder, amount)
	fmt.Printf(Green+"Credited %s of each token to %s.%s\n", amount.String(), holder, Reset)
}

func (c *console) save(ctx context.Context) {
	st := c.pool.Snapshot()
	if err := c.store.Save(ctx, st); err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	c.log.Infow("snapshot saved", "ticks", len(st.Ticks), "positions", len(st.Positions))
	fmt.Printf(Green+"Snapshot saved (%d ticks, %d positions).%s\n", len(st.Ticks), len(st.Positions), Reset)
}

func (c *console) load(ctx context.Context) {
	st, found, err := c.store.Load(ctx)
	if err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	if !found {
		fmt.Println(Yellow + "[INFO] No snapshot stored." + Reset)
		return
	}
	if err := c.pool.Restore(st); err != nil {
		fmt.Printf(Red+"[ERROR] %v%s\n", err, Reset)
		return
	}
	c.log.Infow("snapshot restored", "ticks", len(st.Ticks), "positions", len(st.Positions))
	fmt.Printf(Green+"Snapshot restored (%d ticks, %d positions).%s\n", len(st.Ticks), len(st.Positions), Reset)
}

// --- HELPERS ---

func readPositionArgs(reader *bufio.Reader) (common.Address, int64, int64, bool) {
	fmt.Print("\n" + Bold + "Owner address: " + Reset)
	owner, ok := readAddress(reader)
	if !ok {
		return common.Address{}, 0, 0, false
	}
	fmt.Print(Bold + "Lower tick: " + Reset)
	lower, ok := readInt(reader)
	if !ok {
		return common.Address{}, 0, 0, false
	}
	fmt.Print(Bold + "Upper tick: " + Reset)
	upper, ok := readInt(reader)
	if !ok {
		return common.Address{}, 0, 0, false
	}
	return owner, lower, upper, true
}

func readAddress(reader *bufio.Reader) (common.Address, bool) {
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		fmt.Println(Red + "[ERROR] Not a valid hex address." + Reset)
		return common.Address{}, false
	}
	return common.HexToAddress(input), true
}

func readInt(reader *bufio.Reader) (int64, bool) {
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	var n int64
	if _, err := fmt.Sscanf(input, "%d", &n); err != nil {
		fmt.Println(Red + "[ERROR] Not a valid integer." + Reset)
		return 0, false
	}
	return n, true
}

func readBig(reader *bufio.Reader) (*big.Int, bool) {
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	n, ok := new(big.Int).SetString(input, 10)
	if !ok {
		fmt.Println(Red + "[ERROR] Not a valid integer." + Reset)
		return nil, false
	}
	return n, true
}
