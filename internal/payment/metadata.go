package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"storefront-checkout/internal/model"
)

// Stripe limita cada valor de metadata a 500 caracteres y a 50 claves.
const (
	metadataValueLimit = 500
	maxCartChunks      = 40

	metaCartPrefix = "cart_"
	metaCartChunks = "cart_chunks"
	metaUserID     = "user_id"
)

var ErrCartTooLarge = errors.New("cart does not fit in session metadata")

// CartLine es el ítem del carrito tal como quedó resuelto contra el catálogo.
// Se guarda en la metadata de la sesión para que el webhook pueda armar la orden.
type CartLine struct {
	ID       string         `json:"id"`
	Type     model.ItemType `json:"type"`
	Title    string         `json:"title"`
	Price    string         `json:"price"`
	Quantity int64          `json:"qty"`
}

// EncodeCartMetadata serializa el carrito en trozos cart_0..cart_n.
func EncodeCartMetadata(lines []CartLine, userID string) (map[string]string, error) {
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode cart: %w", err)
	}

	payload := string(raw)
	md := map[string]string{}
	n := 0
	for len(payload) > 0 {
		if n == maxCartChunks {
			return nil, ErrCartTooLarge
		}
		size := min(metadataValueLimit, len(payload))
		// No cortar un carácter multibyte al medio
		for size < len(payload) && size > 0 && !utf8.RuneStart(payload[size]) {
			size--
		}
		md[metaCartPrefix+strconv.Itoa(n)] = payload[:size]
		payload = payload[size:]
		n++
	}
	md[metaCartChunks] = strconv.Itoa(n)
	if userID != "" {
		md[metaUserID] = userID
	}
	return md, nil
}

// DecodeCartMetadata reconstruye el carrito. Metadata sin carrito devuelve nil, nil.
func DecodeCartMetadata(md map[string]string) ([]CartLine, error) {
	countRaw, ok := md[metaCartChunks]
	if !ok {
		return nil, nil
	}
	count, err := strconv.Atoi(countRaw)
	if err != nil || count < 0 || count > maxCartChunks {
		return nil, fmt.Errorf("invalid cart chunk count %q", countRaw)
	}

	var b strings.Builder
	for i := 0; i < count; i++ {
		part, ok := md[metaCartPrefix+strconv.Itoa(i)]
		if !ok {
			return nil, fmt.Errorf("cart chunk %d missing", i)
		}
		b.WriteString(part)
	}

	var lines []CartLine
	if err := json.Unmarshal([]byte(b.String()), &lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return lines, nil
}

func UserIDFromMetadata(md map[string]string) string {
	return md[metaUserID]
}
