package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// KeyHeader carrega a chave de particionamento, já que NATS não tem key nativa
const KeyHeader = "Wager-Key"

// Connect abre a conexão NATS usada como bus alternativo (BUS_PROVIDER=nats)
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}
