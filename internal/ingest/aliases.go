package ingest

// Ordered alias tables per canonical field. Each canonical field resolves to
// the first non-empty alias present on the raw record; the order encodes
// which source names are most trustworthy when a record carries several.
// Covers the known source shapes: the token-bot CSV export, the position
// CSV export, JSON exports, webhook deliveries, live-feed events and API
// echoes.
var (
	idAliases = []string{
		"id", "tradeId", "trade_id", "legId", "leg_id", "signalId", "signal_id",
	}

	symbolAliases = []string{
		"tokenSymbol", "token_symbol", "symbol", "ticker", "tokenName", "token_name", "token",
	}

	addressAliases = []string{
		"tokenAddress", "token_address", "mint", "tokenMint", "token_mint", "mintAddress", "ca",
	}

	entryPriceAliases = []string{
		"entryPrice", "entry_price", "purchasePrice", "purchase_price",
		"executionPrice", "execution_price", "signalPrice", "signal_price",
		"buyPrice", "buy_price", "price",
	}

	// Webhook senders disagree on the price field name; unlike export rows
	// there is no entry/exit split yet, so current-price spellings count too.
	webhookPriceAliases = []string{
		"price", "currentPrice", "current_price", "executionPrice", "execution_price",
		"signalPrice", "signal_price",
	}

	exitPriceAliases = []string{
		"exitPrice", "exit_price", "sellPrice", "sell_price", "closePrice", "close_price",
	}

	quantityAliases = []string{
		"amount", "quantity", "tokenAmount", "token_amount", "entryQuantity",
		"entry_quantity", "size", "qty",
	}

	positionSizeAliases = []string{
		"positionSizeSol", "position_size_sol", "positionSize", "position_size",
		"solAmount", "sol_amount", "amountSol", "solSpent", "sol_spent",
	}

	exitPositionAliases = []string{
		"exitPositionSol", "exit_position_sol", "solReceived", "sol_received",
		"exitValueSol", "exit_value_sol",
	}

	pnlAliases = []string{
		"pnl", "profitLoss", "profit_loss", "realizedPnl", "realized_pnl", "profit",
	}

	pnlPercentAliases = []string{
		"pnlPercent", "pnl_percent", "profitLossPercentage", "profit_loss_percentage",
		"pnlPct", "roi",
	}

	feesAliases = []string{
		"fees", "fee", "totalFees", "total_fees", "gasFees", "gas_fees",
	}

	timestampAliases = []string{
		"timestamp", "time", "purchaseTime", "purchase_time", "entryTime",
		"entry_time", "openedAt", "opened_at", "executedAt", "executed_at",
		"createdAt", "created_at", "date",
	}

	exitTimestampAliases = []string{
		"exitTimestamp", "exit_timestamp", "sellTime", "sell_time", "exitTime",
		"exit_time", "closedAt", "closed_at", "closeTime", "close_time",
	}

	sideAliases = []string{
		"side", "action", "direction", "tradeType", "trade_type", "type",
	}

	statusAliases = []string{
		"status", "tradeStatus", "trade_status", "state", "positionStatus", "position_status",
	}

	agentAliases = []string{
		"agentId", "agent_id", "agentName", "agent_name", "botId", "bot_id",
		"strategyId", "strategy_id",
	}

	linkedLegAliases = []string{
		"linkedLegId", "linked_leg_id", "linkedBuyTradeId", "linked_buy_trade_id",
		"buyTradeId", "buy_trade_id", "parentTradeId", "parent_trade_id",
	}

	errorTypeAliases = []string{
		"errorType", "error_type", "failureReason", "failure_reason", "errorCode", "error_code",
	}

	errorMessageAliases = []string{
		"errorMessage", "error_message", "error", "errorMsg", "reason",
	}

	dexAliases = []string{
		"dex", "dexName", "dex_name", "exchange", "venue", "platform",
	}

	txSignatureAliases = []string{
		"txSignature", "tx_signature", "signature", "txHash", "tx_hash", "txid", "txId",
	}

	refURLAliases = []string{
		"refUrl", "ref_url", "chartUrl", "chart_url", "dexscreenerUrl", "dexscreener_url",
	}
)
