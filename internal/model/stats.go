package model

import "math"

// NoSellPrice is MinSell for a listing with no sell orders.
const NoSellPrice = 99999999

// TradingFee is the fraction of the sale price kept by the trading post.
const TradingFee = 0.15

// ListingStats summarizes a listing's order book. Computed once, never updated.
type ListingStats struct {
	MaxBuy     int     // Highest buy price (0 if no buys)
	MinSell    int     // Lowest sell price (NoSellPrice if no sells)
	BuyVolume  int     // Sum of buy quantities
	SellVolume int     // Sum of sell quantities
	MeanBuy    float64 // Quantity-weighted mean buy price
	MeanSell   float64 // Quantity-weighted mean sell price

	// Margin is ((MinSell - MaxBuy) - fee) / (MaxBuy + 1), fee = (MinSell - 1) * TradingFee.
	Margin float64

	// VolumeMargin is BuyVolume / SellVolume, +Inf when nothing is for sale.
	VolumeMargin float64
}

// ComputeStats derives ListingStats from raw buy and sell offers.
func ComputeStats(buys, sells []Offer) ListingStats {
	s := ListingStats{MinSell: NoSellPrice}

	var buyTotal, sellTotal float64
	for _, b := range buys {
		if b.UnitPrice > s.MaxBuy {
			s.MaxBuy = b.UnitPrice
		}
		buyTotal += float64(b.UnitPrice) * float64(b.Quantity)
		s.BuyVolume += b.Quantity
	}
	for _, o := range sells {
		if o.UnitPrice < s.MinSell {
			s.MinSell = o.UnitPrice
		}
		sellTotal += float64(o.UnitPrice) * float64(o.Quantity)
		s.SellVolume += o.Quantity
	}

	if s.BuyVolume > 0 {
		s.MeanBuy = buyTotal / float64(s.BuyVolume)
	}
	if s.SellVolume > 0 {
		s.MeanSell = sellTotal / float64(s.SellVolume)
	}

	delta := float64(s.MinSell - s.MaxBuy)
	fee := float64(s.MinSell-1) * TradingFee
	s.Margin = (delta - fee) / float64(s.MaxBuy+1)

	s.VolumeMargin = math.Inf(1)
	if s.SellVolume > 0 {
		s.VolumeMargin = float64(s.BuyVolume) / float64(s.SellVolume)
	}

	return s
}
