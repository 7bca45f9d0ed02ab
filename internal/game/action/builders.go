package action

func base(kind Kind, entity string) Base {
	return Base{Type: kind, Entity: entity}
}

func NewPass(entity string) *Pass {
	return &Pass{Base: base(KindPass, entity)}
}

func NewMessage(entity, text string) *Message {
	return &Message{Base: base(KindMessage, entity), Text: text}
}

func NewBid(entity, company string, price int) *Bid {
	return &Bid{Base: base(KindBid, entity), Company: company, Price: price}
}

func NewPar(entity, corporation string, price int) *Par {
	return &Par{Base: base(KindPar, entity), Corporation: corporation, SharePrice: price}
}

func NewBuyShares(entity, corporation, source string, percent int) *BuyShares {
	return &BuyShares{Base: base(KindBuyShares, entity), Corporation: corporation, Source: source, Percent: percent}
}

// NewBuyPresidentShare requests the president's certificate from the market pool.
func NewBuyPresidentShare(entity, corporation string, percent int) *BuyShares {
	a := NewBuyShares(entity, corporation, SourceMarket, percent)
	a.President = true
	return a
}

func NewSellShares(entity, corporation string, percent int) *SellShares {
	return &SellShares{Base: base(KindSellShares, entity), Corporation: corporation, Percent: percent}
}

func NewBuyCompany(entity, company string, price int) *BuyCompany {
	return &BuyCompany{Base: base(KindBuyCompany, entity), Company: company, Price: price}
}

func NewSellCompany(entity, company string) *SellCompany {
	return &SellCompany{Base: base(KindSellCompany, entity), Company: company}
}

func NewPayoffPlayerDebt(entity string) *PayoffPlayerDebt {
	return &PayoffPlayerDebt{Base: base(KindPayoffPlayerDebt, entity)}
}

func NewLayTile(entity, hex, tile, color string, rotation int) *LayTile {
	return &LayTile{Base: base(KindLayTile, entity), Hex: hex, Tile: tile, Color: color, Rotation: rotation}
}

func NewPlaceToken(entity, hex string) *PlaceToken {
	return &PlaceToken{Base: base(KindPlaceToken, entity), Hex: hex}
}

func NewRunRoutes(entity string, revenue int, trains ...string) *RunRoutes {
	return &RunRoutes{Base: base(KindRunRoutes, entity), Revenue: revenue, Trains: trains}
}

func NewDividend(entity, distribution string) *Dividend {
	return &Dividend{Base: base(KindDividend, entity), Distribution: distribution}
}

func NewBuyTrain(entity, train string, price int) *BuyTrain {
	return &BuyTrain{Base: base(KindBuyTrain, entity), Train: train, Price: price}
}

func NewDiscardTrain(entity, train string) *DiscardTrain {
	return &DiscardTrain{Base: base(KindDiscardTrain, entity), Train: train}
}

func NewTakeLoan(entity string) *TakeLoan {
	return &TakeLoan{Base: base(KindTakeLoan, entity)}
}

func NewPayoffLoan(entity string) *PayoffLoan {
	return &PayoffLoan{Base: base(KindPayoffLoan, entity)}
}

func NewConvert(entity string) *Convert {
	return &Convert{Base: base(KindConvert, entity)}
}

func NewBankrupt(entity string) *Bankrupt {
	return &Bankrupt{Base: base(KindBankrupt, entity)}
}
