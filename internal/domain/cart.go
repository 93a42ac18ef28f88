package domain

type CartLine struct {
	ItemID    int64   `json:"item_id"`
	ItemName  string  `json:"item_nome"`
	Quantity  float64 `json:"quantidade"`
	Value     float64 `json:"valor_venda"`
	Discount  float64 `json:"desconto"`
	Surcharge float64 `json:"acrescimo"`
	Profit    float64 `json:"lucro"`
}

// Cart is the ordered list of lines pending finalization for one session.
type Cart []CartLine

func (c Cart) Total() float64 {
	total := 0.0
	for _, line := range c {
		total += line.Value
	}
	return total
}

func (c Cart) Profit() float64 {
	total := 0.0
	for _, line := range c {
		total += line.Profit
	}
	return total
}

func (c Cart) Clone() Cart {
	if c == nil {
		return nil
	}
	dup := make(Cart, len(c))
	copy(dup, c)
	return dup
}

const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionState is what a browser session keeps outside the process between requests.
type SessionState struct {
	Username string  `json:"username"`
	Cart     Cart    `json:"carrinho"`
	Flashes  []Flash `json:"flashes,omitempty"`
}
