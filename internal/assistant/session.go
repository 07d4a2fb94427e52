package assistant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"phpclientgen/internal/llm"
	"phpclientgen/internal/logger"
	"phpclientgen/internal/project"
	"phpclientgen/internal/prompt"
)

// InvalidConfigMessage replaces a model reply whose JSON block does not parse
const InvalidConfigMessage = "I tried to create the JSON configuration, but it seems to be invalid. Could you please confirm the details and I'll try again?"

var configBlock = regexp.MustCompile("(?s)```json\n(.*?)\n```")

// Reply is the outcome of one conversation turn
type Reply struct {
	Text string
	// Config is set once the model has produced a final, valid configuration
	Config *project.Config
}

// Session is one configuration conversation
type Session struct {
	client  llm.Client
	logger  *logger.Logger
	history []llm.Message
}

// NewSession creates a new instance of Session
func NewSession(client llm.Client, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		client: client,
		logger: log.WithComponent("assistant"),
	}
}

// History returns the conversation so far
func (s *Session) History() []llm.Message {
	return append([]llm.Message(nil), s.history...)
}

// Send adds a user turn, asks the model and records its reply. A failed call
// leaves the user turn out of the history so it can be retried.
func (s *Session) Send(ctx context.Context, text string, onChunk llm.ChunkHandler) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message is empty")
	}

	history := append(s.History(), llm.Message{Role: llm.RoleUser, Text: text})
	out, err := s.client.Converse(ctx, prompt.ConfigSystemInstruction, history, onChunk)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Text: out}
	if cfg, found, err := ExtractConfig(out); found {
		if err != nil {
			s.logger.Warnf("model produced an invalid configuration: %v", err)
			reply.Text = InvalidConfigMessage
		} else {
			reply.Config = cfg
		}
	}

	s.history = append(history, llm.Message{Role: llm.RoleModel, Text: reply.Text})
	return reply, nil
}

// ExtractConfig looks for a ```json block in a model reply. found reports
// whether a block was present at all.
func ExtractConfig(reply string) (cfg *project.Config, found bool, err error) {
	m := configBlock.FindStringSubmatch(reply)
	if m == nil {
		return nil, false, nil
	}
	cfg, err = project.ParseConfig(m[1])
	return cfg, true, err
}

// Run drives the conversation over a line-oriented reader and writer until a
// configuration is produced, the user types exit or quit, or input ends.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) (*project.Config, error) {
	reader := bufio.NewReader(in)
	fmt.Fprintln(out, "Describe the API client you want to build. Type 'exit' to stop.")

	for {
		fmt.Fprint(out, "\n> ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read user input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		text := strings.TrimSpace(line)
		switch strings.ToLower(text) {
		case "":
			if eof {
				return nil, nil
			}
			continue
		case "exit", "quit":
			return nil, nil
		}

		reply, sendErr := s.Send(ctx, text, func(chunk string) { fmt.Fprint(out, chunk) })
		if sendErr != nil {
			if ctx.Err() != nil {
				return nil, sendErr
			}
			fmt.Fprintf(out, "\nSorry, I ran into an error: %v\n", sendErr)
		} else {
			if reply.Text == InvalidConfigMessage {
				fmt.Fprintf(out, "\n%s", reply.Text)
			}
			fmt.Fprintln(out)
			if reply.Config != nil {
				return reply.Config, nil
			}
		}

		if eof {
			return nil, nil
		}
	}
}
