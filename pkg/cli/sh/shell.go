// Package sh provides the interactive radar shell.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mmwave.go/pkg/radar"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
	"github.com/robotalks/mmwave.go/pkg/radar/sink/mqtt"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *radar.Config
	// Store keeps values from replayed and watched readings.
	Store *sink.Store

	lock  sync.Mutex
	watch *watch
}

type watch struct {
	queue *mqtt.Queue
	sub   *mqtt.Subscription
}

const (
	shellKey = "$shell"
	prompt   = "mmwave > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DecodeCmd,
		&EncodeCmd,
		&ReplayCmd,
		&WatchCmd,
		&UnwatchCmd,
		&StatusCmd,
		&TypesCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds adds extra commands, used during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *radar.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
		Store:  sink.NewStore(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// PrintJSON prints v as JSON.
func PrintJSON(c *ishell.Context, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// PrintValues prints values as a table or JSON.
func (s *Shell) PrintValues(c *ishell.Context, values []sink.Value) {
	if s.OutputJSON {
		out := make(map[string]interface{}, len(values))
		for _, v := range values {
			out[string(v.Name)] = v.JSONValue()
		}
		PrintJSON(c, out)
		return
	}
	if len(values) == 0 {
		c.Println("No values")
		return
	}
	c.Print(sink.Format(values))
}

// Watch subscribes readings of device ("+" for all) from the broker,
// replacing a previous watch.
func (s *Shell) Watch(device string, fn mqtt.Handler) error {
	if s.Config.MQTTURL == "" {
		return fmt.Errorf("MQTT URL not configured")
	}
	q, err := mqtt.NewQueueFromURL(s.Config.MQTTURL)
	if err != nil {
		return err
	}
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	sub := q.Sub(device+"/+", fn)
	s.Unwatch()
	s.lock.Lock()
	s.watch = &watch{queue: q, sub: sub}
	s.lock.Unlock()
	return nil
}

// Unwatch stops watching.
func (s *Shell) Unwatch() {
	s.lock.Lock()
	w := s.watch
	s.watch = nil
	s.lock.Unlock()
	if w != nil {
		w.sub.Close()
		w.queue.Close()
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Unwatch()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(radar.MustNewConfig()).Run(flag.Args()...)
}
