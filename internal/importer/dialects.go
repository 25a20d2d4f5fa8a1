package importer

import "github.com/alevras/tally/internal/ingest"

// Dialect names a specific mapping of source column names to canonical
// fields, used to disambiguate near-identical export formats.
type Dialect string

const (
	// DialectAuto lets the detector decide
	DialectAuto Dialect = ""
	// DialectTokenBot is the token-bot trade history export
	DialectTokenBot Dialect = "tokenbot"
	// DialectPosition is the position-manager export
	DialectPosition Dialect = "position"
	// DialectGeneric is the fallback alias table for unrecognized headers
	DialectGeneric Dialect = "generic"
	// DialectJSON tags JSON inputs (field names are self-describing)
	DialectJSON Dialect = "json"
)

// SourceFormat returns the normalizer tag for legs produced from this dialect
func (d Dialect) SourceFormat() string {
	switch d {
	case DialectTokenBot:
		return ingest.SourceTokenBotCSV
	case DialectPosition:
		return ingest.SourcePositionCSV
	case DialectJSON:
		return ingest.SourceJSON
	default:
		return ingest.SourceGenericCSV
	}
}

// headerFamily is a set of normalized header spellings that all mean the
// same canonical field.
type headerFamily struct {
	canonical string   // Key emitted on the parsed record (normalizer alias)
	headers   []string // Normalized header spellings, in preference order
}

// A dialect signature is the subset of its families that must ALL be present
// in the header row for the dialect to be detected. Requiring several
// families simultaneously avoids false positives against the generic
// dialect, whose alias table overlaps every specific dialect.

var tokenBotFamilies = []headerFamily{
	{canonical: "tokenSymbol", headers: []string{"tokensymbol", "token"}},
	{canonical: "tokenAddress", headers: []string{"tokenaddress", "mint", "mintaddress"}},
	{canonical: "entryPrice", headers: []string{"purchaseprice", "buyprice"}},
	{canonical: "exitPrice", headers: []string{"sellprice"}},
	{canonical: "pnl", headers: []string{"profitloss", "profit"}},
	{canonical: "pnlPercent", headers: []string{"profitlosspercentage", "profitlosspercent"}},
	{canonical: "quantity", headers: []string{"amount", "quantity"}},
	{canonical: "timestamp", headers: []string{"purchasetime", "buytime"}},
	{canonical: "exitTimestamp", headers: []string{"selltime"}},
	{canonical: "fees", headers: []string{"fees", "fee"}},
	{canonical: "status", headers: []string{"status"}},
	{canonical: "txSignature", headers: []string{"txsignature", "signature"}},
	{canonical: "dex", headers: []string{"dex", "exchange"}},
	{canonical: "agentId", headers: []string{"agentid", "agent"}},
}

// tokenBotSignature: token symbol + purchase price + profit/loss families
// must all be present (indexes into tokenBotFamilies).
var tokenBotSignature = []string{"tokenSymbol", "entryPrice", "pnl"}

var positionFamilies = []headerFamily{
	{canonical: "id", headers: []string{"orderid", "positionid", "id"}},
	{canonical: "tokenSymbol", headers: []string{"symbol", "ticker"}},
	{canonical: "tokenAddress", headers: []string{"tokenaddress", "mint"}},
	{canonical: "side", headers: []string{"side", "direction"}},
	{canonical: "entryPrice", headers: []string{"entryprice", "openprice"}},
	{canonical: "exitPrice", headers: []string{"exitprice", "closeprice"}},
	{canonical: "quantity", headers: []string{"qty", "quantity", "size"}},
	{canonical: "timestamp", headers: []string{"openedat", "entrytime", "opentime"}},
	{canonical: "exitTimestamp", headers: []string{"closedat", "exittime", "closetime"}},
	{canonical: "pnl", headers: []string{"realizedpnl", "pnl"}},
	{canonical: "pnlPercent", headers: []string{"pnlpercent", "roi"}},
	{canonical: "status", headers: []string{"status", "state"}},
	{canonical: "fees", headers: []string{"fees", "commission"}},
	{canonical: "linkedLegId", headers: []string{"linkedbuytradeid", "linkedlegid", "buytradeid"}},
	{canonical: "agentId", headers: []string{"agentid", "botid", "strategyid"}},
}

// positionSignature: symbol + side + entry price families must all be present
var positionSignature = []string{"tokenSymbol", "side", "entryPrice"}

var genericFamilies = []headerFamily{
	{canonical: "id", headers: []string{"id", "tradeid"}},
	{canonical: "tokenSymbol", headers: []string{"tokensymbol", "symbol", "token", "ticker"}},
	{canonical: "tokenAddress", headers: []string{"tokenaddress", "mint", "address"}},
	{canonical: "entryPrice", headers: []string{"entryprice", "price", "buyprice", "purchaseprice"}},
	{canonical: "exitPrice", headers: []string{"exitprice", "sellprice", "closeprice"}},
	{canonical: "quantity", headers: []string{"amount", "quantity", "qty", "size"}},
	{canonical: "pnl", headers: []string{"pnl", "profitloss", "profit"}},
	{canonical: "pnlPercent", headers: []string{"pnlpercent", "roi"}},
	{canonical: "timestamp", headers: []string{"timestamp", "time", "date", "createdat"}},
	{canonical: "exitTimestamp", headers: []string{"exittimestamp", "closedat"}},
	{canonical: "side", headers: []string{"side", "action", "type"}},
	{canonical: "status", headers: []string{"status", "state"}},
	{canonical: "fees", headers: []string{"fees", "fee"}},
	{canonical: "agentId", headers: []string{"agentid", "agent"}},
	{canonical: "dex", headers: []string{"dex", "exchange", "venue"}},
	{canonical: "txSignature", headers: []string{"txsignature", "txhash", "signature"}},
}

// dialectFamilies returns the column mapping for a dialect
func dialectFamilies(d Dialect) []headerFamily {
	switch d {
	case DialectTokenBot:
		return tokenBotFamilies
	case DialectPosition:
		return positionFamilies
	default:
		return genericFamilies
	}
}
