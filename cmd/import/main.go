/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"resale-escrow-go/internal/common"
	"resale-escrow-go/internal/config"
	"resale-escrow-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// ImportFile is an export of listings and paid orders from the checkout system
type ImportFile struct {
	Listings []ListingRecord `yaml:"listings"`
	Orders   []OrderRecord   `yaml:"orders"`
}

type ListingRecord struct {
	Id            string `yaml:"id"`
	SellerId      string `yaml:"seller_id"`
	EventName     string `yaml:"event_name"`
	EventDate     string `yaml:"event_date"`
	AskingPrice   string `yaml:"asking_price"`
	OriginalPrice string `yaml:"original_price"`
	Currency      string `yaml:"currency"`
}

type OrderRecord struct {
	Id                 string `yaml:"id"`
	ListingId          string `yaml:"listing_id"`
	BuyerId            string `yaml:"buyer_id"`
	SellerId           string `yaml:"seller_id"`
	Amount             string `yaml:"amount"`
	SellerPayoutAmount string `yaml:"seller_payout_amount"`
	Currency           string `yaml:"currency"`
	TransferDeadline   string `yaml:"transfer_deadline"`
}

type importedOrder struct {
	order    models.Order
	deadline time.Time
}

type batch struct {
	listings []models.Listing
	orders   []importedOrder
}

func loadFile(path string) (*ImportFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*ImportFile, error) {
	var f ImportFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}
	return &f, nil
}

func parseAmount(field, s string, allowZero bool) (decimal.Decimal, error) {
	if s == "" && allowZero {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	if d.IsNegative() || (!allowZero && d.IsZero()) {
		return decimal.Zero, fmt.Errorf("%s must be positive, got %s", field, s)
	}
	return d, nil
}

func parseCurrency(s string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(s))
	if len(c) != 3 {
		return "", fmt.Errorf("invalid currency %q", s)
	}
	return c, nil
}

// validate converts the records into store models, resolving each order's
// seller from its listing when the export omits it.
func (f *ImportFile) validate() (*batch, error) {
	b := &batch{}
	sellers := make(map[string]string, len(f.Listings))

	for i, r := range f.Listings {
		if r.Id == "" || r.SellerId == "" || r.EventName == "" {
			return nil, fmt.Errorf("listing %d: id, seller_id and event_name are required", i)
		}
		if _, dup := sellers[r.Id]; dup {
			return nil, fmt.Errorf("listing %s: duplicate id", r.Id)
		}
		eventDate, err := time.Parse(time.RFC3339, r.EventDate)
		if err != nil {
			return nil, fmt.Errorf("listing %s: invalid event_date: %w", r.Id, err)
		}
		asking, err := parseAmount("asking_price", r.AskingPrice, false)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", r.Id, err)
		}
		original, err := parseAmount("original_price", r.OriginalPrice, true)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", r.Id, err)
		}
		currency, err := parseCurrency(r.Currency)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", r.Id, err)
		}
		sellers[r.Id] = r.SellerId
		b.listings = append(b.listings, models.Listing{
			Id:            r.Id,
			SellerId:      r.SellerId,
			EventName:     r.EventName,
			EventDate:     eventDate.UTC(),
			AskingPrice:   asking,
			OriginalPrice: original,
			Currency:      currency,
			Status:        models.ListingActive,
		})
	}

	for i, r := range f.Orders {
		if r.Id == "" || r.ListingId == "" || r.BuyerId == "" {
			return nil, fmt.Errorf("order %d: id, listing_id and buyer_id are required", i)
		}
		seller := r.SellerId
		if seller == "" {
			seller = sellers[r.ListingId]
		}
		if seller == "" {
			return nil, fmt.Errorf("order %s: seller unknown for listing %s", r.Id, r.ListingId)
		}
		if seller == r.BuyerId {
			return nil, fmt.Errorf("order %s: buyer and seller are the same user", r.Id)
		}
		amount, err := parseAmount("amount", r.Amount, false)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", r.Id, err)
		}
		payout, err := parseAmount("seller_payout_amount", r.SellerPayoutAmount, false)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", r.Id, err)
		}
		if payout.GreaterThan(amount) {
			return nil, fmt.Errorf("order %s: seller payout %s exceeds amount %s", r.Id, payout, amount)
		}
		currency, err := parseCurrency(r.Currency)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", r.Id, err)
		}
		deadline, err := time.Parse(time.RFC3339, r.TransferDeadline)
		if err != nil {
			return nil, fmt.Errorf("order %s: invalid transfer_deadline: %w", r.Id, err)
		}
		b.orders = append(b.orders, importedOrder{
			order: models.Order{
				Id:                 r.Id,
				ListingId:          r.ListingId,
				BuyerId:            r.BuyerId,
				SellerId:           seller,
				Amount:             amount,
				SellerPayoutAmount: payout,
				Currency:           currency,
				Status:             models.OrderStatusPaid,
				EscrowStatus:       models.EscrowPendingTransfer,
			},
			deadline: deadline.UTC(),
		})
	}
	return b, nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fileFlag := flag.String("file", "import.yaml", "YAML export of listings and orders")
	dryRun := flag.Bool("dry-run", false, "Validate the file without writing")
	flag.Parse()

	f, err := loadFile(*fileFlag)
	if err != nil {
		zap.L().Fatal("Failed to load import file", zap.Error(err))
	}
	b, err := f.validate()
	if err != nil {
		zap.L().Fatal("Import file is invalid", zap.String("file", *fileFlag), zap.Error(err))
	}

	common.PrintHeader("IMPORT", common.DefaultWidth)
	fmt.Printf("Listings: %d\n", len(b.listings))
	fmt.Printf("Orders:   %d\n", len(b.orders))
	if *dryRun {
		common.PrintFooter("Dry run, nothing written", common.DefaultWidth)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	st, err := common.InitializeStore(ctx, cfg.Database)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer st.Close()

	for _, l := range b.listings {
		if err := st.CreateListing(ctx, l); err != nil {
			zap.L().Fatal("Failed to create listing", zap.String("listing_id", l.Id), zap.Error(err))
		}
	}
	for i, o := range b.orders {
		if err := st.CreateOrder(ctx, o.order, o.deadline); err != nil {
			zap.L().Fatal("Failed to create order", zap.String("order_id", o.order.Id), zap.Error(err))
		}
		fmt.Printf("%s %s  %s %s  deadline %s\n", common.BoxPrefix(i == len(b.orders)-1),
			o.order.Id, o.order.Amount.StringFixed(2), o.order.Currency, o.deadline.Format(time.RFC3339))
	}
	common.PrintFooter("Import complete", common.DefaultWidth)

	zap.L().Info("Import complete",
		zap.Int("listings", len(b.listings)),
		zap.Int("orders", len(b.orders)))
}
