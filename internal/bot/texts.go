package bot

// Reply keyboard labels. They double as command aliases.
const (
	BtnKitchen      = "Kitchen"
	BtnBar          = "Bar"
	BtnMarkMode     = "Mark Mode"
	BtnStopMarkMode = "Stop Mark Mode"
	BtnPlaceOrder   = "Place Order"
	BtnTodayList    = "Today List"
	BtnCustomList   = "Custom List"
	BtnCustom       = "Custom"
	BtnBackToMain   = "🔙 Back to Main"
	BtnCategories   = "Categories"
	BtnGoBack       = "Go Back"
	BtnSearch       = "Search"
)

// Lane order buttons; the label carries the submitted count.
const (
	btnKitchenOrders = "Kitch Order (%d)"
	btnBarOrders     = "Bar Order (%d)"
)

const (
	textWelcome = "⚡ Welcome to KALI Easy Order!\nSelect a main category:"
	textHelp    = "🏪 KALI Easy Order Help\n\n" +
		"• Select category → Choose item → Manager approval → Dispatcher review → Processing confirmation → Completed\n" +
		"• Mark Mode collects several items into one bulk order\n" +
		"• Use @botname <search> for inline search\n" +
		"• Custom lets you send requests to managers"

	textItemNotFound     = "Item not found"
	textSentForApproval  = "✅ Sent for manager approval"
	textApprovalNotFound = "Approval record not found"
	textDispatchNotFound = "Dispatch record not found"
	textQuantityUpdated  = "Quantity updated to %d"
	textItemApproved     = "✅ Item approved and sent to dispatcher"
	textItemCancelled    = "Item cancelled"
	textDispatched       = "✅ Item dispatched - Poll created for processing"
	textDispatchRejected = "❌ Dispatch rejected"
	textCallFailed       = "⚠️ Telegram did not accept the update, please try again"
	textCRMPlaceholder   = "📊 CRM update feature is not available yet"

	textMarkEnabled    = "🔹 Mark Mode Enabled!\nClick items to mark them for bulk ordering."
	textMarkDisabled   = "🔹 Mark Mode Disabled"
	textMarkModeOff    = "Mark Mode is not active"
	textSendOrderTo    = "Send order to:"
	textMarked         = "🔹 Marked: %s"
	textUnmarked       = "Unmarked: %s"
	textBulkSent       = "✅ Bulk order sent to %s!"
	textBulkSentAnswer = "Order sent to %s"
	markedPrefix       = "🔹 "

	textChooseSub     = "Choose a %s sub-category:"
	textChooseSubMark = "Select %s sub-category (Mark Mode):"
	textNoItemsFor    = "No items found for %s"
	textItemsOf       = "%s items:"
	textAllCategories = "All Categories:"
	textCategoriesFor = "Categories for %s:"
	textNoCategories  = "No categories found."
	textGoBack        = "⬅️ Go Back"

	textTodayList      = "📋 Today's List:\n```\n%s\n```"
	textTodayMissing   = "📋 Today's list is empty or not found."
	textCustomList     = "📝 Custom List:\n```\n%s\n```"
	textCustomListMiss = "📝 Custom list is empty or not found."

	textCustomPrompt    = "Send your custom item request (photo, voice, or text). This will be sent to managers for approval."
	textCustomApproval  = "📋 Custom Item Approval Required from %s"
	textCustomSent      = "✅ Custom request sent to managers for approval."
	textCustomFailed    = "⚠️ Could not forward the request, please try again."
	textCustomCancelled = "Custom request cancelled."
	textCustomApproved  = "✅ Custom item request APPROVED"
	textCustomRejected  = "❌ Custom item request REJECTED"
	textCustomOK        = "✅ Custom item approved"
	textCustomNo        = "❌ Custom item rejected"

	textOpenKitchen = "Tap below to open Kitchen Topic:"
	textOpenBar     = "Tap below to open Bar Topic:"
	textGoKitchen   = "Go to Kitchen Topic"
	textGoBar       = "Go to Bar Topic"

	textSearch        = "Type @%s <item> in any chat to search instantly, or tap below to start inline search."
	textSearchButton  = "🔎 Search"
	textInlineMessage = "🛒 %s - Sent for manager approval"
	textAddToOrder    = "Add to order"

	textUnknown         = "Unknown command. Use /start to open the menu."
	textUnknownDoc      = "Documents are only accepted while an admin import is in progress."
	textUnknownAction   = "Unsupported action"
	textAccessDenied    = "Access denied."
	textSomethingOff    = "Something went wrong, please try again."
	textNothingToCancel = "Nothing to cancel."
)

// Admin texts.
const (
	textAdminMenu       = "Admin Menu:"
	textAdminJSON       = "JSON %s (edit and send back):\n```json\n%s\n```"
	textAdminJSONDoc    = "JSON %s (edit and send back)"
	textAdminCSV        = "CSV %s (edit and send back):\n\n%s"
	textAdminCSVDoc     = "CSV %s"
	textAdminPasteJSON  = "Send a JSON array of items, categories or suppliers. /cancel to abort."
	textAdminPasteCSV   = "Send the items CSV as text or as a document. /cancel to abort."
	textAdminPasteItem  = "Send one item as a JSON object to create or update it. /cancel to abort."
	textAdminSaved      = "%s JSON updated! (%d records)"
	textAdminUnknown    = "Unknown JSON structure."
	textAdminInvalid    = "Invalid JSON format."
	textAdminCSVSaved   = "CSV updated and converted to JSON! (%d items)"
	textAdminCSVInvalid = "Invalid CSV: an item_sku column and at least one row are required."
	textItemUpdated     = "Item updated!"
	textItemCreated     = "Item created!"
	textItemInvalid     = "Invalid item JSON."
	textRestored        = "%s restored from %s."
	textNoBackup        = "No backup found for %s."
	textAdminCancelled  = "Cancelled."

	textPickSupplier     = "Select supplier order:"
	textNoSuppliers      = "No enabled suppliers."
	textNoSupplierItems  = "No items are ordered from %s."
	textPickItem         = "Select item for admin action:"
	textChooseAction     = "Choose action:"
	textAssignTo         = "Assign item to:"
	textItemRemoved      = "Item removed from supplier order."
	textItemAssigned     = "Item assigned to %s."
	textAdminItemMissing = "Item not found."
	textAdminFailed     = "⚠️ Saving failed: %v"
)
