package bot

// Persistent menu labels. Dispatch matches inbound text against these
// exactly, so they double as entry-point routing keys.
const (
	MenuBooks       = "📚 Books"
	MenuPlaceOrder  = "🛒 Place order"
	MenuMyOrders    = "📦 My orders"
	MenuEditProfile = "✏️ Edit profile"
	MenuAbout       = "ℹ️ About"
	MenuCancel      = "❌ Cancel"

	MenuStats        = "📊 Stats"
	MenuOrders       = "📦 Orders"
	MenuAddBook      = "➕ Add book"
	MenuBookList     = "📚 Book list"
	MenuUsers        = "👥 Users"
	MenuCardSettings = "💳 Card settings"
)

func buyerMenu() [][]string {
	return [][]string{
		{MenuBooks, MenuPlaceOrder},
		{MenuMyOrders, MenuEditProfile},
		{MenuAbout, MenuCancel},
	}
}

func adminMenu() [][]string {
	return [][]string{
		{MenuStats, MenuOrders},
		{MenuAddBook, MenuBookList},
		{MenuUsers, MenuCardSettings},
		{MenuCancel},
	}
}

func isBuyerMenuLabel(text string) bool {
	switch text {
	case MenuBooks, MenuPlaceOrder, MenuMyOrders, MenuEditProfile, MenuAbout, MenuCancel:
		return true
	}
	return false
}

func isAdminMenuLabel(text string) bool {
	switch text {
	case MenuStats, MenuOrders, MenuAddBook, MenuBookList, MenuUsers, MenuCardSettings, MenuCancel:
		return true
	}
	return false
}
