package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	repo "app/internal/repository"
	"app/internal/usecase"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// 通知は助言的なもの。送信失敗はログに残して捨てる（リトライしない）。
type Dispatcher struct {
	bot           *tgbotapi.BotAPI
	adminChatID   int64
	feedbackDelay time.Duration

	orders    repo.OrderRepository
	customers *usecase.CustomerUsecase
	status    *usecase.OrderStatusUsecase
	catalog   *usecase.CatalogUsecase
}

func NewDispatcher(
	bot *tgbotapi.BotAPI,
	adminChatID int64,
	feedbackDelay time.Duration,
	orders repo.OrderRepository,
	customers *usecase.CustomerUsecase,
	status *usecase.OrderStatusUsecase,
	catalog *usecase.CatalogUsecase,
) *Dispatcher {
	return &Dispatcher{
		bot:           bot,
		adminChatID:   adminChatID,
		feedbackDelay: feedbackDelay,
		orders:        orders,
		customers:     customers,
		status:        status,
		catalog:       catalog,
	}
}

// イベントバスに購読登録する
func (d *Dispatcher) Subscribe(bus *event.Bus) {
	bus.Subscribe(event.TypeOrderPlaced, d.HandleOrderPlaced)
	bus.Subscribe(event.TypeStatusChanged, d.HandleStatusChanged)
	bus.Subscribe(event.TypeLowStock, d.HandleLowStock)
}

func (d *Dispatcher) HandleOrderPlaced(ctx context.Context, ev event.Event) {
	placed, ok := ev.Payload.(event.OrderPlaced)
	if !ok {
		return
	}
	o := placed.Order

	displayAddress := o.CustomerAddress
	if o.DeliveryType == model.DeliveryPickup {
		displayAddress = "Pickup"
	}

	// 客への確認
	d.send(o.UserID, fmt.Sprintf(
		"✅ <b>Order %s confirmed!</b>\n\n💰 <b>Total:</b> %d\n🚚 <b>Delivery:</b> %s",
		o.Number, o.TotalPrice, displayAddress,
	), nil)

	// スタッフチャットにはステータスボタン付きで
	d.send(d.adminChatID, fmt.Sprintf(
		"New order 🔥\n\n<b>%s</b>\n\n👤 %s\n📞 %s\n📍 %s\n🛒 <b>Items:</b>\n%s\n\nTotal: <b>%d</b>",
		o.Number, o.CustomerName, o.CustomerPhone, displayAddress, o.ItemsText, o.TotalPrice,
	), statusKeyboard(o))
}

func (d *Dispatcher) HandleStatusChanged(ctx context.Context, ev event.Event) {
	changed, ok := ev.Payload.(event.StatusChanged)
	if !ok {
		return
	}
	o := changed.Order

	var text string
	switch o.Status {
	case model.OrderStatusPreparing:
		text = fmt.Sprintf("👨‍🍳 Your order <b>%s</b> is being prepared!", o.Number)
	case model.OrderStatusEnRoute:
		text = fmt.Sprintf("🚗 Your order <b>%s</b> is on its way!", o.Number)
	case model.OrderStatusReady:
		text = fmt.Sprintf("✅ Your order <b>%s</b> is ready for pickup!", o.Number)
	case model.OrderStatusCompleted:
		text = fmt.Sprintf("🎉 Order <b>%s</b> delivered!", o.Number)
	case model.OrderStatusCancelled:
		text = fmt.Sprintf("❌ Your order <b>%s</b> was cancelled.", o.Number)
	default:
		return
	}

	d.send(o.UserID, text, nil)

	// 完了後、少し間を置いて評価を聞く
	if o.Status == model.OrderStatusCompleted {
		number := o.Number
		userID := o.UserID
		time.AfterFunc(d.feedbackDelay, func() {
			d.send(userID, "How was your order? Rate us:", feedbackKeyboard(number))
		})
	}
}

func (d *Dispatcher) HandleLowStock(ctx context.Context, ev event.Event) {
	low, ok := ev.Payload.(event.LowStock)
	if !ok {
		return
	}
	d.send(d.adminChatID, fmt.Sprintf(
		"⚠️ <b>Low stock:</b> %s: %d left", low.Product.Name, low.Product.Stock,
	), nil)
}

// Run は long-polling モード。WEBHOOK_URLが無いローカル実行用。
func (d *Dispatcher) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := d.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			d.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			d.ProcessUpdate(ctx, update)
		}
	}
}

// Webhook ingressとpollingループの両方がここに入る
func (d *Dispatcher) ProcessUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		d.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		d.handleMessage(ctx, update.Message)
	}
}

const (
	btnWhereIsMyOrder = "🚚 Where is my order?"
	btnMyProfile      = "👤 My profile"
	btnSupport        = "📞 Support"
)

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case strings.HasPrefix(msg.Text, "/start"):
		reply := tgbotapi.NewMessage(msg.Chat.ID,
			fmt.Sprintf("👋 Hi, %s!\nReady to take your order.", msg.From.FirstName))
		reply.ReplyMarkup = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnWhereIsMyOrder), tgbotapi.NewKeyboardButton(btnMyProfile)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSupport)),
		)
		if _, err := d.bot.Send(reply); err != nil {
			log.Printf("telegram send failed: chat=%d: %v", msg.Chat.ID, err)
		}

	case msg.Text == btnWhereIsMyOrder:
		d.replyOrderStatus(ctx, msg.From.ID)

	case msg.Text == btnMyProfile:
		d.replyProfile(ctx, msg.From.ID)

	case msg.Text == btnSupport:
		d.send(msg.Chat.ID, "Questions? Message our manager: @shop_manager", nil)

	case strings.HasPrefix(msg.Text, "/stock"):
		// スタッフチャット限定の手動在庫調整
		if msg.Chat.ID != d.adminChatID {
			return
		}
		d.handleStockCommand(ctx, msg.Text)
	}
}

// /stock <product id> <stock> [reason...]
func (d *Dispatcher) handleStockCommand(ctx context.Context, text string) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		d.send(d.adminChatID, "Usage: /stock <product id> <stock> [reason]", nil)
		return
	}

	newStock, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		d.send(d.adminChatID, "Usage: /stock <product id> <stock> [reason]", nil)
		return
	}

	reason := "manual adjustment"
	if len(fields) > 3 {
		reason = strings.Join(fields[3:], " ")
	}

	if err := d.catalog.AdjustStock(ctx, fields[1], newStock, reason); err != nil {
		d.send(d.adminChatID, fmt.Sprintf("❌ Stock update failed: %v", err), nil)
		return
	}
	d.send(d.adminChatID, fmt.Sprintf("✅ Stock for %s set to %d", fields[1], newStock), nil)
}

func (d *Dispatcher) replyOrderStatus(ctx context.Context, userID int64) {
	o, found, err := d.orders.LatestByUserAndDate(ctx, userID, time.Now())
	if err != nil || !found {
		d.send(userID, "No active orders for today. 🤷", nil)
		return
	}

	emoji := "🕒"
	switch o.Status {
	case model.OrderStatusPreparing:
		emoji = "👨‍🍳"
	case model.OrderStatusEnRoute:
		emoji = "🚗"
	case model.OrderStatusReady:
		emoji = "✅"
	case model.OrderStatusCompleted:
		emoji = "🏁"
	}

	d.send(userID, fmt.Sprintf(
		"📦 <b>Order %s</b>\nStatus: <b>%s %s</b>\n\nItems:\n%s",
		o.Number, o.Status, emoji, o.ItemsText,
	), nil)
}

func (d *Dispatcher) replyProfile(ctx context.Context, userID int64) {
	c, found, err := d.customers.FindByUserID(ctx, userID)
	if err != nil || !found {
		d.send(userID, "We haven't met yet! Place your first order.", nil)
		return
	}

	d.send(userID, fmt.Sprintf(
		"👤 <b>Your profile:</b>\n\n🏷 Name: %s\n📱 Phone: %s\n📍 Address: %s\n\n📜 <b>Last order:</b>\n%s",
		c.Name, c.Phone, c.Address, c.LastItems,
	), nil)
}

// callback data: status|DD.MM.YYYY|<number>|<new status> / rate|<stars>|<number>
func (d *Dispatcher) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	parts := strings.Split(query.Data, "|")

	switch parts[0] {
	case "rate":
		if len(parts) != 3 {
			return
		}
		stars, number := parts[1], parts[2]

		d.answer(query.ID, "Thanks for the rating!")
		edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID,
			fmt.Sprintf("✅ Thanks! You gave %s⭐ to order %s", stars, number))
		if _, err := d.bot.Send(edit); err != nil {
			log.Printf("telegram edit failed: %v", err)
		}

		if n, err := strconv.Atoi(stars); err == nil && n <= 3 {
			d.send(d.adminChatID, fmt.Sprintf(
				"⚠️ <b>BAD REVIEW!</b>\nCustomer rated order %s with %s⭐.\nReach out!", number, stars,
			), nil)
		}

	case "status":
		if len(parts) != 4 {
			return
		}
		date, err := time.Parse("02.01.2006", parts[1])
		if err != nil {
			return
		}
		number := parts[2]
		newStatus := model.OrderStatus(parts[3])

		if err := d.status.UpdateStatusByNumber(ctx, date, number, newStatus); err != nil {
			log.Printf("status update failed: order=%s: %v", number, err)
			d.answer(query.ID, "Update failed")
			return
		}
		d.answer(query.ID, fmt.Sprintf("Status: %s", newStatus))
	}
}

func (d *Dispatcher) send(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := d.bot.Send(msg); err != nil {
		log.Printf("telegram send failed: chat=%d: %v", chatID, err)
	}
}

func (d *Dispatcher) answer(callbackID string, text string) {
	if _, err := d.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("telegram callback answer failed: %v", err)
	}
}

func statusKeyboard(o model.Order) *tgbotapi.InlineKeyboardMarkup {
	date := o.DeliveryDate.Format("02.01.2006")
	data := func(s model.OrderStatus) string {
		return fmt.Sprintf("status|%s|%s|%s", date, o.Number, s)
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍳 Preparing", data(model.OrderStatusPreparing)),
			tgbotapi.NewInlineKeyboardButtonData("🚀 En route", data(model.OrderStatusEnRoute)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Ready", data(model.OrderStatusReady)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏁 Completed", data(model.OrderStatusCompleted)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", data(model.OrderStatusCancelled)),
		),
	)
	return &kb
}

func feedbackKeyboard(number string) *tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for stars := 1; stars <= 5; stars++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("⭐ %d", stars),
			fmt.Sprintf("rate|%d|%s", stars, number),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}
