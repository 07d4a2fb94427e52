package assistant

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpclientgen/internal/llm"
	"phpclientgen/internal/logger"
	"phpclientgen/internal/prompt"
	"phpclientgen/internal/types"
)

// scriptedClient answers Converse calls with canned replies in order
type scriptedClient struct {
	replies []string
	errs    []error
	calls   [][]llm.Message
	system  string
}

func (c *scriptedClient) StreamCode(ctx context.Context, p string, onChunk llm.ChunkHandler) error {
	return errors.New("not used")
}

func (c *scriptedClient) Converse(ctx context.Context, system string, history []llm.Message, onChunk llm.ChunkHandler) (string, error) {
	i := len(c.calls)
	c.calls = append(c.calls, history)
	c.system = system
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	reply := c.replies[i]
	if onChunk != nil {
		onChunk(reply)
	}
	return reply, nil
}

const finalReply = "```json\n" + `{
  "baseUri": "https://blog.example.com",
  "namespace": "Acme\\Blog",
  "authConfig": {"method": "bearer", "tokenVariableName": "$token"},
  "endpoints": [
    {"name": "getPosts", "method": "GET", "path": "/posts", "responsePayload": "[{\"id\":1}]",
     "dbConfig": {"enabled": false, "dbType": "mariadb", "tableName": ""}}
  ]
}` + "\n```"

func TestExtractConfig(t *testing.T) {
	cfg, found, err := ExtractConfig("What is the base URL?")
	assert.Nil(t, cfg)
	assert.False(t, found)
	assert.NoError(t, err)

	cfg, found, err = ExtractConfig(finalReply)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://blog.example.com", cfg.BaseURI)
	assert.Equal(t, `Acme\Blog`, cfg.Namespace)
	require.Len(t, cfg.Endpoints, 1)
	assert.Equal(t, types.MethodGet, cfg.Endpoints[0].Method)

	_, found, err = ExtractConfig("```json\n{not json}\n```")
	assert.True(t, found)
	assert.Error(t, err)
}

func TestSession_Send(t *testing.T) {
	client := &scriptedClient{replies: []string{"Which authentication does it use?", finalReply}}
	s := NewSession(client, logger.Nop())

	reply, err := s.Send(context.Background(), "A blog client with posts", nil)
	require.NoError(t, err)
	assert.Nil(t, reply.Config)
	assert.Equal(t, prompt.ConfigSystemInstruction, client.system)

	reply, err = s.Send(context.Background(), "Bearer token", nil)
	require.NoError(t, err)
	require.NotNil(t, reply.Config)
	assert.Equal(t, "https://blog.example.com", reply.Config.BaseURI)

	// second call saw the whole conversation
	require.Len(t, client.calls, 2)
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleUser, Text: "A blog client with posts"},
		{Role: llm.RoleModel, Text: "Which authentication does it use?"},
		{Role: llm.RoleUser, Text: "Bearer token"},
	}, client.calls[1])
	assert.Len(t, s.History(), 4)
}

func TestSession_SendInvalidJSON(t *testing.T) {
	client := &scriptedClient{replies: []string{"```json\n{\"baseUri\": }\n```"}}
	s := NewSession(client, nil)

	reply, err := s.Send(context.Background(), "go", nil)
	require.NoError(t, err)
	assert.Nil(t, reply.Config)
	assert.Equal(t, InvalidConfigMessage, reply.Text)
	assert.Equal(t, InvalidConfigMessage, s.History()[1].Text)
}

func TestSession_SendError(t *testing.T) {
	client := &scriptedClient{errs: []error{llm.ErrGenerationFailed}}
	s := NewSession(client, nil)

	_, err := s.Send(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, llm.ErrGenerationFailed)
	assert.Empty(t, s.History())

	_, err = s.Send(context.Background(), "   ", nil)
	assert.Error(t, err)
}

func TestSession_Run(t *testing.T) {
	client := &scriptedClient{replies: []string{"Which authentication does it use?", finalReply}}
	s := NewSession(client, nil)

	var out bytes.Buffer
	cfg, err := s.Run(context.Background(), strings.NewReader("A blog client\n\nBearer token\nnever read\n"), &out)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, `Acme\Blog`, cfg.Namespace)
	assert.Contains(t, out.String(), "Which authentication does it use?")
	assert.Len(t, client.calls, 2)
}

func TestSession_RunExitAndEOF(t *testing.T) {
	for _, input := range []string{"exit\n", "QUIT\n", "", "last words"} {
		client := &scriptedClient{replies: []string{"ok"}}
		cfg, err := NewSession(client, nil).Run(context.Background(), strings.NewReader(input), &bytes.Buffer{})
		assert.NoError(t, err, input)
		assert.Nil(t, cfg, input)
	}
}

func TestSession_RunReportsErrorsAndContinues(t *testing.T) {
	client := &scriptedClient{
		replies: []string{"", finalReply},
		errs:    []error{llm.ErrSafetyBlocked, nil},
	}
	var out bytes.Buffer
	cfg, err := NewSession(client, nil).Run(context.Background(), strings.NewReader("one\ntwo\n"), &out)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Contains(t, out.String(), "Sorry, I ran into an error")
}
